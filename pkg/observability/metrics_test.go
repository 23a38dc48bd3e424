package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/tagml"
	"github.com/aretw0/tagml/pkg/domain"
	"github.com/aretw0/tagml/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	eng, err := tagml.New("", tagml.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, err)

	start := time.Now()
	res, err := eng.Import(context.Background(), "d", []byte("[x>[t>A<-t]B[+t>C<t]<x]"))
	require.NoError(t, err)
	metrics.ObserveImport(start, res.Diagnostics, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Markups.WithLabelValues("open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Markups.WithLabelValues("suspend")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Markups.WithLabelValues("resume")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Markups.WithLabelValues("close")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.TextNodes))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Imports.WithLabelValues("ok")))

	count, err := testutil.GatherAndCount(reg, "tagml_import_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_ObserveImportOutcomes(t *testing.T) {
	metrics := observability.NewMetrics(nil)

	invalid := domain.Diagnostics{{Kind: domain.KindEOF, Message: "x"}}
	metrics.ObserveImport(time.Now(), invalid, &domain.ImportError{Diagnostics: invalid})
	metrics.ObserveImport(time.Now(), nil, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Imports.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Imports.WithLabelValues("error")))
}

func TestCompose(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var diags int
	hooks := observability.Compose(
		observability.LoggingHooks(logger),
		domain.LifecycleHooks{OnDiagnostic: func(context.Context, *domain.Diagnostic) { diags++ }},
	)

	eng, err := tagml.New("", tagml.WithLifecycleHooks(hooks))
	require.NoError(t, err)
	_, _ = eng.Import(context.Background(), "d", []byte("[a>x<a]y"))

	assert.Equal(t, 1, diags)
	assert.Contains(t, buf.String(), "msg=markup_open")
	assert.Contains(t, buf.String(), "kind=eof")
}
