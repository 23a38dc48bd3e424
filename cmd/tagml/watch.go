package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/pkg/session"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-validate sources in --dir whenever they change",
	Long: `Validates every source in --dir, then watches the directory and re-imports
each source as it changes. With --save, well-formed documents are stored
in the configured library.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		save, _ := cmd.Flags().GetBool("save")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, err := a.engine(a.dir)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", a.dir, err)
		}

		var lib *session.Manager
		if save {
			m, closeLib, err := a.library(ctx)
			if err != nil {
				return err
			}
			defer closeLib()
			lib = m
		}

		w := &watcher{engine: engine, lib: lib, out: cmd.OutOrStdout(), app: a}
		ids, err := engine.Sources()
		if err != nil {
			return err
		}
		for _, id := range ids {
			w.check(ctx, id)
		}

		changes, err := engine.Watch(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("watching for changes", "dir", a.dir, "sources", len(ids))
		for id := range changes {
			w.check(ctx, id)
		}
		a.logger.Info("watcher stopped")
		return nil
	},
}

type watcher struct {
	engine *tagml.Engine
	lib    *session.Manager
	out    io.Writer
	app    *app
}

// check re-imports one source and reports the outcome. Failures never stop the watch.
func (w *watcher) check(ctx context.Context, id string) {
	res, err := w.engine.ImportSource(ctx, id)
	if isImportFailure(err) {
		w.app.logger.Warn("import failed", "id", id, "error", err)
		return
	}
	if !res.OK() {
		fmt.Fprintf(w.out, "%s: %d diagnostic(s)\n", id, len(res.Diagnostics))
		printDiagnostics(w.out, res.Diagnostics)
		return
	}
	fmt.Fprintf(w.out, "%s: ok\n", id)
	if w.lib != nil {
		if err := w.lib.Save(ctx, id, res.Document); err != nil {
			w.app.logger.Error("save failed", "id", id, "error", err)
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("save", false, "Store well-formed documents in the configured library")
}
