package tracer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracingAndMetrics(t *testing.T) {
	ctx := context.Background()
	p, err := InitTracingAndMetrics(ctx, Config{ServiceName: "county-ndvi-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(ctx) })

	counter, err := otel.GetMeterProvider().Meter("test").Int64Counter("tracer_test_total")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	_, span := otel.Tracer("test").Start(ctx, "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	w := httptest.NewRecorder()
	p.MetricsHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `tracer_test_total\{[^}]*\} 3`, w.Body.String())
}
