package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/tagml/pkg/domain"
)

// LoggingHooks logs markup changes and diagnostics at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	markup := func(ctx context.Context, e *domain.MarkupEvent) {
		logger.DebugContext(ctx, "markup_"+e.Action,
			"markup", e.Markup.StartTag(),
			"id", e.Markup.ID,
			"layers", e.Layers,
		)
	}
	return domain.LifecycleHooks{
		OnMarkupOpen:  markup,
		OnMarkupClose: markup,
		OnDiagnostic: func(ctx context.Context, d *domain.Diagnostic) {
			logger.DebugContext(ctx, "diagnostic",
				"kind", d.Kind,
				"pos", d.Range.Start.String(),
				"breaking", d.Breaking,
				"message", d.Message,
			)
		},
	}
}

// Compose returns hooks that call each of the given hook sets in order.
func Compose(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnMarkupOpen = chain(out.OnMarkupOpen, h.OnMarkupOpen)
		out.OnMarkupClose = chain(out.OnMarkupClose, h.OnMarkupClose)
		out.OnText = chain(out.OnText, h.OnText)
		out.OnDiagnostic = chain(out.OnDiagnostic, h.OnDiagnostic)
	}
	return out
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}
