package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/internal/logging"
	"github.com/aretw0/tagml/internal/presentation/graph"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

//go:embed openapi.yaml
var rawSpec []byte

// Engine defines the interface for the TAGML import core.
type Engine interface {
	Import(ctx context.Context, name string, src []byte) (*tagml.Result, error)
	Validate(ctx context.Context, src []byte) (domain.Diagnostics, error)
	Watch(ctx context.Context) (<-chan string, error)
}

// ImportRequest is the body of POST /import.
type ImportRequest struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Save   bool   `json:"save,omitempty"`
}

// ImportResponse is returned by POST /import.
type ImportResponse struct {
	Document    *domain.Document   `json:"document,omitempty"`
	Diagnostics domain.Diagnostics `json:"diagnostics"`
}

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	Source string `json:"source"`
}

// ValidateResponse is returned by POST /validate.
type ValidateResponse struct {
	Valid       bool               `json:"valid"`
	Diagnostics domain.Diagnostics `json:"diagnostics"`
}

// ImportEvent is broadcast to subscribers of a document after each import.
type ImportEvent struct {
	Document    string `json:"document"`
	Valid       bool   `json:"valid"`
	Diagnostics int    `json:"diagnostics"`
	Saved       bool   `json:"saved"`
}

// Server serves the HTTP API.
type Server struct {
	Engine    Engine
	Documents *session.Manager
	Streams   *StreamManager

	spec     *openapi3.T
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithDocuments enables the document library routes.
func WithDocuments(m *session.Manager) Option {
	return func(s *Server) {
		s.Documents = m
	}
}

// WithMetrics serves the collectors of g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// LoadSpec parses and validates the embedded OpenAPI description.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	doc, err := openapi3.NewLoader().LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// NewServer creates a Server; it fails only if the embedded spec is broken.
func NewServer(engine Engine, opts ...Option) (*Server, error) {
	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		spec:    spec,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.logger
	return s, nil
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	s, err := NewServer(engine, opts...)
	if err != nil {
		return nil, err
	}
	return s.Routes(), nil
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Post("/import", s.Import)
	r.Post("/validate", s.Validate)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.ListDocuments)
		r.Get("/{id}", s.GetDocument)
		r.Delete("/{id}", s.DeleteDocument)
		r.Get("/{id}/graph", s.GetDocumentGraph)
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Import handles the POST /import request.
func (s *Server) Import(w http.ResponseWriter, r *http.Request) {
	var body ImportRequest
	if !s.decode(w, r, "ImportRequest", &body) {
		return
	}
	if body.Save && body.ID == "" {
		http.Error(w, "id is required when save is true", http.StatusBadRequest)
		return
	}
	if body.Save && s.Documents == nil {
		http.Error(w, "document library is not configured", http.StatusNotImplemented)
		return
	}

	var (
		res *tagml.Result
		err error
	)
	if body.Save {
		res, err = s.Documents.ImportAndSave(r.Context(), s.Engine, body.ID, []byte(body.Source))
	} else {
		res, err = s.Engine.Import(r.Context(), body.ID, []byte(body.Source))
	}

	var ie *domain.ImportError
	switch {
	case err == nil:
	case errors.As(err, &ie):
		s.logger.Info("Import: document has diagnostics", "document", body.ID, "diagnostics", len(ie.Diagnostics))
	default:
		http.Error(w, fmt.Sprintf("Import error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Import failed", "document", body.ID, "err", err)
		return
	}

	if body.ID != "" {
		s.broadcast(body.ID, ImportEvent{
			Document:    body.ID,
			Valid:       err == nil,
			Diagnostics: len(res.Diagnostics),
			Saved:       body.Save && err == nil,
		})
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, ImportResponse{Document: res.Document, Diagnostics: nonNil(res.Diagnostics)}, s.logger)
}

// Validate handles the POST /validate request.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	var body ValidateRequest
	if !s.decode(w, r, "ValidateRequest", &body) {
		return
	}
	diags, err := s.Engine.Validate(r.Context(), []byte(body.Source))
	if err != nil {
		http.Error(w, fmt.Sprintf("Validate error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Validate failed", "err", err)
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: !diags.HasErrors(), Diagnostics: nonNil(diags)}, s.logger)
}

// ListDocuments handles the GET /documents request.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	if !s.requireDocuments(w) {
		return
	}
	ids, err := s.Documents.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.logger.Error("List documents failed", "err", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids, s.logger)
}

// GetDocument handles the GET /documents/{id} request.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc, s.logger)
}

// GetDocumentGraph handles the GET /documents/{id}/graph request.
func (s *Server) GetDocumentGraph(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(doc, nil))
}

// DeleteDocument handles the DELETE /documents/{id} request.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !s.requireDocuments(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.Documents.Delete(r.Context(), id); err != nil {
		http.Error(w, fmt.Sprintf("Delete error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Delete document failed", "document", id, "err", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "tagml-http",
		"version":     strings.TrimSpace(tagml.Version),
		"api_version": apiVersion,
	}, s.logger)
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var events <-chan string
	docID := r.URL.Query().Get("document")
	if docID == "" {
		ch, err := s.Engine.Watch(r.Context())
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, tagml.ErrWatchUnsupported) {
				status = http.StatusNotImplemented
			}
			http.Error(w, fmt.Sprintf("Watch error: %v", err), status)
			return
		}
		s.logger.Info("SSE: Subscribing to source changes")
		events = ch
	} else {
		ch, cancel := s.Streams.Subscribe(docID)
		defer cancel()
		s.logger.Info("SSE: Subscribing to document imports", "document", docID)
		events = ch
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected")
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) broadcast(id string, ev ImportEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.Streams.Broadcast(id, string(data))
}

// decode reads a JSON body, checks it against the named OpenAPI schema and decodes it into out.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema string, out any) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Request body rejected", "err", err)
		return false
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid JSON body", "err", err)
		return false
	}
	if ref := s.spec.Components.Schemas[schema]; ref != nil && ref.Value != nil {
		if err := ref.Value.VisitJSON(raw); err != nil {
			http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
			return false
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) requireDocuments(w http.ResponseWriter) bool {
	if s.Documents == nil {
		http.Error(w, "document library is not configured", http.StatusNotImplemented)
		return false
	}
	return true
}

func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*domain.Document, bool) {
	if !s.requireDocuments(w) {
		return nil, false
	}
	id := chi.URLParam(r, "id")
	doc, err := s.Documents.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			http.Error(w, fmt.Sprintf("document %s not found", id), http.StatusNotFound)
			return nil, false
		}
		http.Error(w, fmt.Sprintf("Load error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Load document failed", "document", id, "err", err)
		return nil, false
	}
	return doc, true
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Response encode failed", "err", err)
	}
}

func nonNil(d domain.Diagnostics) domain.Diagnostics {
	if d == nil {
		return domain.Diagnostics{}
	}
	return d
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // document id -> set of channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logging.NewNop(),
	}
}

func (sm *StreamManager) Subscribe(id string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[id]; !ok {
		sm.subscribers[id] = make(map[chan<- string]struct{})
	}
	sm.subscribers[id][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[id]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, id)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(id string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[id] {
		select {
		case ch <- msg:
		default:
			// slow client
			sm.logger.Warn("SSE: Client buffer full, dropping message", "document", id)
		}
	}
}
