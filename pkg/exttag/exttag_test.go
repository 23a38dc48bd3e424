package exttag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Tag
	}{
		{"line", Tag{Name: "line"}},
		{"?opt", Tag{Prefix: PrefixOptional, Name: "opt"}},
		{"-t", Tag{Prefix: PrefixSuspend, Name: "t"}},
		{"+t", Tag{Prefix: PrefixResume, Name: "t"}},
		{"tei:p", Tag{Namespace: "tei", Name: "p"}},
		{"q~1", Tag{Name: "q", Suffix: "1"}},
		{"a|la", Tag{Name: "a", Layers: []LayerRef{{Name: "la"}}}},
		{"s|+A,B", Tag{Name: "s", Layers: []LayerRef{{Name: "A", Add: true}, {Name: "B"}}}},
		{"w|A+B", Tag{Name: "w", Layers: []LayerRef{{Name: "B", Parent: "A", Add: true}}}},
		{"?x:y~2|+a,b+c", Tag{
			Prefix:    PrefixOptional,
			Namespace: "x",
			Name:      "y",
			Suffix:    "2",
			Layers:    []LayerRef{{Name: "a", Add: true}, {Name: "c", Parent: "b", Add: true}},
		}},
		{"", Tag{}},
		{"|la", Tag{Layers: []LayerRef{{Name: "la"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{"a|", "a~", "a|,b", "a b"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestTag_String(t *testing.T) {
	for _, input := range []string{"line", "?tei:p~1|+a,b+c", "-t|x"} {
		got, err := Parse(input)
		require.NoError(t, err)
		assert.Equal(t, input, got.String())
	}
}

func TestTag_Helpers(t *testing.T) {
	tag, err := Parse("tei:p|a,+b")
	require.NoError(t, err)
	assert.Equal(t, "tei:p", tag.QualifiedName())
	assert.Equal(t, []string{"a", "b"}, tag.LayerNames())
	assert.True(t, tag.HasLayerInfo())
}
