package tagml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/loam"
	"github.com/aretw0/tagml/internal/importer"
	loamAdapter "github.com/aretw0/tagml/pkg/adapters/loam"
	"github.com/aretw0/tagml/pkg/adapters/memory"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/ports"
	"github.com/aretw0/tagml/pkg/tokenizer"
)

// BranchConsistency selects how the branches of a text variation are compared.
type BranchConsistency = importer.BranchConsistency

const (
	BranchStrict = importer.BranchStrict
	BranchDelta  = importer.BranchDelta
)

// ParseBranchConsistency parses "strict" or "delta"; "" selects BranchStrict.
func ParseBranchConsistency(s string) (BranchConsistency, error) {
	return importer.ParseBranchConsistency(s)
}

// Engine is the high-level entry point for importing TAGML.
// It wraps the tokenizer and the import state machine.
type Engine struct {
	loader       ports.SourceLoader
	factory      ports.ModelFactory
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	branchPolicy BranchConsistency
	now          func() time.Time
	Name         string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLoader injects a custom SourceLoader, bypassing the default Loam initialization.
func WithLoader(l ports.SourceLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithModelFactory sets the document model used by imports (default: in-memory graph).
func WithModelFactory(f ports.ModelFactory) Option {
	return func(e *Engine) {
		e.factory = f
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithBranchConsistency sets the cross-branch comparison policy.
func WithBranchConsistency(policy BranchConsistency) Option {
	return func(e *Engine) {
		e.branchPolicy = policy
	}
}

// Result is the outcome of one import.
type Result struct {
	Document    *domain.Document   `json:"document"`
	Diagnostics domain.Diagnostics `json:"diagnostics"`
}

// OK reports whether the import produced no diagnostics.
func (r *Result) OK() bool {
	return !r.Diagnostics.HasErrors()
}

// New initializes a new Engine.
// By default, sources are read from a Loam repository at repoPath.
// If WithLoader is provided, repoPath can be empty and Loam is skipped.
// An engine without any source repository (repoPath "" and no loader) can still Import text.
func New(repoPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		factory:      memory.NewModel,
		branchPolicy: BranchStrict,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil && repoPath != "" {
		absPath, err := filepath.Abs(repoPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)

		// The engine never writes sources.
		repo, err := loam.Init(absPath,
			loam.WithStrict(true),
			loam.WithReadOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize loam: %w", err)
		}
		eng.loader = loamAdapter.New(loam.NewTypedRepository[loamAdapter.SourceMetadata](repo))
	} else if repoPath != "" {
		eng.Name = filepath.Base(repoPath)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("repo", eng.Name)
	}
	return eng, nil
}

// Import tokenizes and imports TAGML text.
// When any diagnostic is reported, the result is returned together with a
// *domain.ImportError joining all diagnostics.
func (e *Engine) Import(ctx context.Context, name string, src []byte) (*Result, error) {
	return e.importWith(ctx, name, src, e.branchPolicy)
}

func (e *Engine) importWith(ctx context.Context, name string, src []byte, policy BranchConsistency) (*Result, error) {
	logger := e.logger.With("document", name)

	events, err := tokenizer.Tokenize(name, string(src))
	if err != nil {
		var serr *tokenizer.SyntaxError
		if !errors.As(err, &serr) {
			return nil, fmt.Errorf("failed to tokenize %s: %w", name, err)
		}
		res := &Result{Diagnostics: domain.Diagnostics{serr.Diagnostic()}}
		if e.hooks.OnDiagnostic != nil {
			e.hooks.OnDiagnostic(ctx, &res.Diagnostics[0])
		}
		logger.Warn("syntax error", "err", serr)
		return res, &domain.ImportError{Name: name, Diagnostics: res.Diagnostics}
	}

	doc, diags, err := importer.Run(ctx, e.factory, events,
		importer.WithLogger(logger),
		importer.WithLifecycleHooks(e.hooks),
		importer.WithBranchConsistency(policy),
	)
	if err != nil {
		return nil, fmt.Errorf("import of %s interrupted: %w", name, err)
	}
	doc.ID = name
	doc.Name = name
	doc.ImportedAt = e.now().UTC()

	res := &Result{Document: doc, Diagnostics: diags}
	logger.Debug("document imported",
		"markups", len(doc.Markups),
		"text_nodes", len(doc.TextNodes),
		"diagnostics", len(diags))
	if diags.HasErrors() {
		return res, &domain.ImportError{Name: name, Diagnostics: diags}
	}
	return res, nil
}

// ImportSource loads a source by id and imports it.
// A per-source branch policy from Loam frontmatter takes precedence over the engine's.
func (e *Engine) ImportSource(ctx context.Context, id string) (*Result, error) {
	if e.loader == nil {
		return nil, fmt.Errorf("no source loader configured")
	}
	src, err := e.loader.GetSource(id)
	if err != nil {
		return nil, err
	}

	policy := e.branchPolicy
	if ml, ok := e.loader.(*loamAdapter.Loader); ok {
		if meta, err := ml.Metadata(id); err == nil && meta.BranchConsistency != "" {
			if policy, err = ParseBranchConsistency(meta.BranchConsistency); err != nil {
				return nil, fmt.Errorf("source %s: %w", id, err)
			}
		}
	}
	return e.importWith(ctx, id, src, policy)
}

// Validate imports the text and returns only its diagnostics.
func (e *Engine) Validate(ctx context.Context, src []byte) (domain.Diagnostics, error) {
	res, err := e.Import(ctx, "", src)
	if res == nil {
		return nil, err
	}
	return res.Diagnostics, nil
}

// Sources lists the ids available from the loader.
func (e *Engine) Sources() ([]string, error) {
	if e.loader == nil {
		return nil, nil
	}
	return e.loader.ListSources()
}

// ErrWatchUnsupported is returned by Watch when the loader cannot report changes.
var ErrWatchUnsupported = errors.New("source loader does not support watching")

// Watch reports the ids of sources that change, when the loader supports it
// (the Loam loader does).
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := e.loader.(interface {
		Watch(context.Context) (<-chan string, error)
	})
	if !ok {
		return nil, ErrWatchUnsupported
	}
	return w.Watch(ctx)
}

// Loader returns the underlying SourceLoader, or nil.
func (e *Engine) Loader() ports.SourceLoader {
	return e.loader
}
