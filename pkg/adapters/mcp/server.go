package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/internal/logging"
	"github.com/aretw0/tagml/internal/presentation/graph"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// documentsURI is the resource listing stored documents.
const documentsURI = "tagml://documents"

// ImportResponse aligns with the HTTP API and provides a unified structure across adapters.
type ImportResponse struct {
	Valid       bool               `json:"valid" jsonschema_description:"True when the document has no diagnostics"`
	Saved       bool               `json:"saved" jsonschema_description:"True when the document was stored in the library"`
	Document    *domain.Document   `json:"document,omitempty" jsonschema_description:"The imported document graph"`
	Diagnostics domain.Diagnostics `json:"diagnostics" jsonschema_description:"Well-formedness diagnostics with line and column"`
}

// ValidateResponse is returned by validate_tagml.
type ValidateResponse struct {
	Valid       bool     `json:"valid" jsonschema_description:"True when the text is well-formed"`
	Diagnostics []string `json:"diagnostics" jsonschema_description:"Position-prefixed diagnostic messages"`
}

// Engine defines the interface required by the MCP server.
type Engine interface {
	Import(ctx context.Context, name string, src []byte) (*tagml.Result, error)
	Validate(ctx context.Context, src []byte) (domain.Diagnostics, error)
}

// Server wraps the import engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	documents *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithDocuments enables storing and reading documents.
func WithDocuments(m *session.Manager) Option {
	return func(s *Server) {
		s.documents = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("tagml-mcp", strings.TrimSpace(tagml.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: import_tagml
	importTool := mcp.NewTool("import_tagml",
		mcp.WithDescription("Import TAGML text into a document graph of markup, layers and text nodes. Reports every well-formedness diagnostic with its line and column."),
		mcp.WithString("source", mcp.Required(), mcp.Description("The TAGML text")),
		mcp.WithString("id", mcp.Description("Document id (required when save is true)")),
		mcp.WithBoolean("save", mcp.Description("Store the document in the library when it is well-formed")),
		mcp.WithOutputSchema[ImportResponse](),
	)
	s.mcpServer.AddTool(importTool, mcp.NewStructuredToolHandler(s.handleImport))

	// TOOL: validate_tagml
	validateTool := mcp.NewTool("validate_tagml",
		mcp.WithDescription("Check TAGML text for well-formedness without storing it."),
		mcp.WithString("source", mcp.Required(), mcp.Description("The TAGML text")),
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))

	// TOOL: get_document
	s.mcpServer.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get a stored document, as JSON or as a Mermaid flowchart."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
		mcp.WithString("format", mcp.Description("\"json\" (default) or \"mermaid\"")),
	), s.handleGetDocument)
}

func (s *Server) handleImport(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ImportResponse, error) {
	src, _ := args["source"].(string)
	id, _ := args["id"].(string)
	save, _ := args["save"].(bool)

	if save && id == "" {
		return ImportResponse{}, errors.New("id is required when save is true")
	}
	if save && s.documents == nil {
		return ImportResponse{}, errors.New("document library is not configured")
	}

	var (
		res *tagml.Result
		err error
	)
	if save {
		res, err = s.documents.ImportAndSave(ctx, s.engine, id, []byte(src))
	} else {
		res, err = s.engine.Import(ctx, id, []byte(src))
	}
	var ie *domain.ImportError
	if err != nil && !errors.As(err, &ie) {
		return ImportResponse{}, fmt.Errorf("import failed: %w", err)
	}

	diags := res.Diagnostics
	if diags == nil {
		diags = domain.Diagnostics{}
	}
	return ImportResponse{
		Valid:       err == nil,
		Saved:       save && err == nil,
		Document:    res.Document,
		Diagnostics: diags,
	}, nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	src, _ := args["source"].(string)
	diags, err := s.engine.Validate(ctx, []byte(src))
	if err != nil {
		return ValidateResponse{}, fmt.Errorf("validate failed: %w", err)
	}
	return ValidateResponse{
		Valid:       !diags.HasErrors(),
		Diagnostics: diags.Messages(),
	}, nil
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	id, _ := args["id"].(string)
	format, _ := args["format"].(string)

	if s.documents == nil {
		return mcp.NewToolResultError("document library is not configured"), nil
	}
	doc, err := s.documents.Load(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load %s failed: %v", id, err)), nil
	}

	switch format {
	case "", "json":
		jsonBytes, _ := json.Marshal(doc)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	case "mermaid":
		return mcp.NewToolResultText(graph.GenerateMermaid(doc, nil)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
	}
}

func (s *Server) registerResources() {
	// EXPOSE: tagml://documents
	s.mcpServer.AddResource(mcp.NewResource(documentsURI, "Stored Documents",
		mcp.WithMIMEType("application/json"),
	), s.readDocuments)
}

func (s *Server) readDocuments(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids := []string{}
	if s.documents != nil {
		list, err := s.documents.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		ids = append(ids, list...)
	}
	jsonBytes, _ := json.Marshal(ids)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      documentsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
