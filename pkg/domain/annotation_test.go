package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotation_JSONEnvelope(t *testing.T) {
	anns := []Annotation{
		{Name: "who", Value: StringValue("Kirk")},
		{Name: "n", Value: NumberValue(3.5)},
		{Name: "ok", Value: BooleanValue(true)},
		{Name: "ref", Value: ReferenceValue("p1")},
		{Name: "list", Value: ListValue{NumberValue(1), StringValue("two")}},
		{Name: "meta", Value: MapValue{{Name: "lang", Value: StringValue("nl")}}},
		{Name: "note", Value: &RichTextValue{Document: &Document{
			TextNodes: []TextNode{{ID: 1, Content: "rich"}},
		}}},
	}

	data, err := json.Marshal(anns)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"name":"who","kind":"string","value":"Kirk"}`)

	var decoded []Annotation
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, len(anns))

	for i := range anns[:6] {
		assert.Equal(t, anns[i], decoded[i], "annotation %s", anns[i].Name)
	}
	rich, ok := decoded[6].Value.(*RichTextValue)
	require.True(t, ok)
	assert.Equal(t, "rich", rich.Document.Text())
}

func TestAnnotation_UnknownKind(t *testing.T) {
	var a Annotation
	err := json.Unmarshal([]byte(`{"name":"x","kind":"blob","value":1}`), &a)
	assert.Error(t, err)
}

func TestAnnotation_String(t *testing.T) {
	assert.Equal(t, `who="Kirk"`, Annotation{Name: "who", Value: StringValue("Kirk")}.String())
	assert.Equal(t, `to->p1`, Annotation{Name: "to", Value: ReferenceValue("p1")}.String())
	assert.Equal(t, `l=[1,true]`, Annotation{Name: "l", Value: ListValue{NumberValue(1), BooleanValue(true)}}.String())
}
