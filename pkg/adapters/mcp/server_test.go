package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/pkg/adapters/memory"
	"github.com/aretw0/tagml/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng, err := tagml.New("")
	require.NoError(t, err)
	return NewServer(eng, WithDocuments(session.NewManager(memory.NewStore())))
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestImportTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t.Run("Save well-formed", func(t *testing.T) {
		args := map[string]any{"source": "[a>x<a]", "id": "doc", "save": true}
		resp, err := s.handleImport(ctx, callRequest(args), args)
		require.NoError(t, err)
		assert.True(t, resp.Valid)
		assert.True(t, resp.Saved)
		assert.Equal(t, "x", resp.Document.Text())
	})

	t.Run("Diagnostics are data", func(t *testing.T) {
		args := map[string]any{"source": "[a>x", "id": "bad", "save": true}
		resp, err := s.handleImport(ctx, callRequest(args), args)
		require.NoError(t, err)
		assert.False(t, resp.Valid)
		assert.False(t, resp.Saved)
		require.Len(t, resp.Diagnostics, 1)
	})

	t.Run("Save without id", func(t *testing.T) {
		args := map[string]any{"source": "[a>x<a]", "save": true}
		_, err := s.handleImport(ctx, callRequest(args), args)
		assert.Error(t, err)
	})
}

func TestValidateTool(t *testing.T) {
	s := newTestServer(t)
	args := map[string]any{"source": "[a>[b>x<a]<b]"}

	resp, err := s.handleValidate(context.Background(), callRequest(args), args)
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, []string{"line 1:8 : Close tag <a] found, expected <b]. Use separate layers to allow for overlap."}, resp.Diagnostics)
}

func TestGetDocumentTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	args := map[string]any{"source": "[a>x<a]", "id": "doc", "save": true}
	_, err := s.handleImport(ctx, callRequest(args), args)
	require.NoError(t, err)

	res, err := s.handleGetDocument(ctx, callRequest(map[string]any{"id": "doc"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), `"content":"x"`)

	res, err = s.handleGetDocument(ctx, callRequest(map[string]any{"id": "doc", "format": "mermaid"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "graph TD")

	res, err = s.handleGetDocument(ctx, callRequest(map[string]any{"id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	contents, err := s.readDocuments(ctx, mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	var ids []string
	require.NoError(t, json.Unmarshal([]byte(contents[0].(mcp.TextResourceContents).Text), &ids))
	assert.Equal(t, []string{"doc"}, ids)
}
