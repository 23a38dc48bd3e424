package tagml_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/internal/testutils"
	"github.com/aretw0/tagml/pkg/adapters/memory"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Import(t *testing.T) {
	eng, err := tagml.New("")
	require.NoError(t, err)

	res, err := eng.Import(context.Background(), "poem", []byte("[poem>[l>Roses are red<l]<poem]"))
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "poem", res.Document.ID)
	assert.Equal(t, "Roses are red", res.Document.Text())
	assert.False(t, res.Document.ImportedAt.IsZero())
	assert.Equal(t, []string{"Roses are red"}, res.Document.TextsOf(res.Document.Root))
}

func TestEngine_ImportDiagnostics(t *testing.T) {
	eng, err := tagml.New("")
	require.NoError(t, err)

	t.Run("Import errors", func(t *testing.T) {
		res, err := eng.Import(context.Background(), "broken", []byte("[line>text"))
		require.Error(t, err)

		var ie *domain.ImportError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, "broken", ie.Name)
		require.NotNil(t, res)
		assert.Equal(t, []string{"line 1:10 : Missing close tag(s) for: [line>"}, res.Diagnostics.Messages())
		assert.Equal(t, res.Diagnostics, domain.DiagnosticsOf(err))
	})

	t.Run("Syntax errors", func(t *testing.T) {
		res, err := eng.Import(context.Background(), "syntax", []byte("[a>text<a"))
		require.Error(t, err)
		require.NotNil(t, res)
		assert.Nil(t, res.Document)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, domain.KindSyntax, res.Diagnostics[0].Kind)
		assert.True(t, res.Diagnostics[0].Breaking)
	})
}

func TestEngine_Validate(t *testing.T) {
	eng, err := tagml.New("")
	require.NoError(t, err)
	ctx := context.Background()

	diags, err := eng.Validate(ctx, []byte("[a>x<a]"))
	require.NoError(t, err)
	assert.Empty(t, diags)

	diags, err = eng.Validate(ctx, []byte("[a>x<a]y"))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, domain.KindEOF, diags[0].Kind)
}

func TestEngine_BranchConsistency(t *testing.T) {
	src := []byte("[t>[x>a<|b<x][x>c|d|>e<x]<t]")
	ctx := context.Background()

	strict, err := tagml.New("")
	require.NoError(t, err)
	_, err = strict.Import(ctx, "v", src)
	require.Error(t, err)
	assert.Equal(t, domain.KindBranch, domain.DiagnosticsOf(err)[0].Kind)

	delta, err := tagml.New("", tagml.WithBranchConsistency(tagml.BranchDelta))
	require.NoError(t, err)
	_, err = delta.Import(ctx, "v", src)
	require.Error(t, err, "markup opened before the variation cannot be closed inside a branch")
}

func TestEngine_Hooks(t *testing.T) {
	var opened, diags int
	eng, err := tagml.New("", tagml.WithLifecycleHooks(domain.LifecycleHooks{
		OnMarkupOpen: func(context.Context, *domain.MarkupEvent) { opened++ },
		OnDiagnostic: func(context.Context, *domain.Diagnostic) { diags++ },
	}))
	require.NoError(t, err)

	_, _ = eng.Import(context.Background(), "h", []byte("[a>[b>x<b]<a]y"))
	assert.Equal(t, 2, opened)
	assert.Equal(t, 1, diags)

	_, _ = eng.Import(context.Background(), "s", []byte("[a>x<a"))
	assert.Equal(t, 2, diags, "syntax errors are reported to the hook too")
}

func TestEngine_WithLoader(t *testing.T) {
	loader := memory.NewLoader(map[string]string{
		"ok":     "[a>x<a]",
		"broken": "[a>x",
	})
	eng, err := tagml.New("", tagml.WithLoader(loader))
	require.NoError(t, err)
	ctx := context.Background()

	ids, err := eng.Sources()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ok", "broken"}, ids)

	res, err := eng.ImportSource(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Document.ID)

	_, err = eng.ImportSource(ctx, "broken")
	assert.Error(t, err)

	_, err = eng.ImportSource(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestEngine_NoLoader(t *testing.T) {
	eng, err := tagml.New("")
	require.NoError(t, err)

	ids, err := eng.Sources()
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = eng.ImportSource(context.Background(), "x")
	assert.Error(t, err)
}

func TestEngine_LoamRepository(t *testing.T) {
	dir, _ := testutils.SetupTestRepo(t)
	testutils.WriteSources(t, dir, map[string]string{
		"sonnet": "[sonnet>[l>Shall I compare thee<l]<sonnet]",
	})
	variant := "---\nid: variant\nbranch_consistency: delta\n---\n[t>[x>a<|[y>b<y]|[y>c<y]|>d<x]<t]"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "variant.md"), []byte(variant), 0644))

	eng, err := tagml.New(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), eng.Name)

	ids, err := eng.Sources()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sonnet", "variant"}, ids)

	res, err := eng.ImportSource(context.Background(), "sonnet")
	require.NoError(t, err)
	assert.Equal(t, "Shall I compare thee", res.Document.Text())

	res, err = eng.ImportSource(context.Background(), "variant")
	require.NoError(t, err)
	assert.Len(t, res.Document.MarkupsByTag("y"), 2)
}

func TestEngine_ImportCanceled(t *testing.T) {
	eng, err := tagml.New("")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err = eng.Import(ctx, "c", []byte("[a>x<a]"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseBranchConsistency(t *testing.T) {
	p, err := tagml.ParseBranchConsistency("")
	require.NoError(t, err)
	assert.Equal(t, tagml.BranchStrict, p)

	_, err = tagml.ParseBranchConsistency("loose")
	assert.Error(t, err)
}
