package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/internal/config"
	"github.com/aretw0/tagml/internal/logging"
	"github.com/aretw0/tagml/pkg/adapters/file"
	"github.com/aretw0/tagml/pkg/adapters/memory"
	"github.com/aretw0/tagml/pkg/adapters/redis"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/persistence/middleware"
	"github.com/aretw0/tagml/pkg/ports"
	"github.com/aretw0/tagml/pkg/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// app is the wiring shared by the subcommands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	dir    string
}

func newApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if b, _ := cmd.Flags().GetString("branches"); b != "" {
		cfg.BranchConsistency = b
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dir, _ := cmd.Flags().GetString("dir")
	return &app{
		cfg:    cfg,
		logger: logging.New(cfg.Level()),
		dir:    dir,
	}, nil
}

// engine builds an import engine. repo may be empty for in-memory use.
func (a *app) engine(repo string, opts ...tagml.Option) (*tagml.Engine, error) {
	policy, err := tagml.ParseBranchConsistency(a.cfg.BranchConsistency)
	if err != nil {
		return nil, err
	}
	base := []tagml.Option{
		tagml.WithLogger(a.logger),
		tagml.WithBranchConsistency(policy),
	}
	return tagml.New(repo, append(base, opts...)...)
}

// library opens the configured document store. The returned close function is never nil.
func (a *app) library(ctx context.Context) (*session.Manager, func() error, error) {
	var (
		store   ports.DocumentStore
		closeFn = func() error { return nil }
		opts    = []session.Option{session.WithLogger(a.logger)}
	)
	active, fallback, err := a.cfg.Store.Keys()
	if err != nil {
		return nil, closeFn, err
	}

	switch a.cfg.Store.Backend {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreFile:
		store = file.NewStore(a.cfg.Store.Path)
	case config.StoreRedis:
		rc := a.cfg.Store.Redis
		var ropts []redis.Option
		if rc.TTL > 0 {
			ropts = append(ropts, redis.WithTTL(rc.TTL))
		}
		prefix := redis.DefaultPrefix
		if rc.Prefix != "" {
			prefix = rc.Prefix
			ropts = append(ropts, redis.WithPrefix(rc.Prefix))
		}
		rs := redis.New(rc.Addr, rc.Password, rc.DB, ropts...)
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, closeFn, fmt.Errorf("redis unavailable at %s: %w", rc.Addr, err)
		}
		store, closeFn = rs, rs.Close
		opts = append(opts, session.WithLocker(redis.NewLocker(rs.Client(), prefix)))
	}
	if active != nil {
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		}))
	}
	a.logger.Debug("document library opened", "backend", a.cfg.Store.Backend, "encrypted", active != nil)
	return session.NewManager(store, opts...), closeFn, nil
}

// importArg imports a file path, "-" for stdin, or a source id from --dir.
func (a *app) importArg(ctx context.Context, arg string, opts ...tagml.Option) (*tagml.Engine, string, *tagml.Result, error) {
	if arg == "-" {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		eng, err := a.engine("", opts...)
		if err != nil {
			return nil, "", nil, err
		}
		res, err := eng.Import(ctx, "stdin", src)
		return eng, "stdin", res, err
	}

	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		src, err := os.ReadFile(arg)
		if err != nil {
			return nil, "", nil, err
		}
		eng, err := a.engine("", opts...)
		if err != nil {
			return nil, "", nil, err
		}
		name := strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
		res, err := eng.Import(ctx, name, src)
		return eng, name, res, err
	}

	eng, err := a.engine(a.dir, opts...)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to open %s: %w", a.dir, err)
	}
	res, err := eng.ImportSource(ctx, arg)
	return eng, arg, res, err
}

// isImportFailure reports whether err is more than a list of diagnostics.
func isImportFailure(err error) bool {
	var ie *domain.ImportError
	return err != nil && !errors.As(err, &ie)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
