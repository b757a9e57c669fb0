package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prevTracer := observability.Tracer
	prevPropagator := otel.GetTextMapPropagator()
	observability.Tracer = tp.Tracer("inkwell-test")
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		observability.Tracer = prevTracer
		otel.SetTextMapPropagator(prevPropagator)
		_ = tp.Shutdown(t.Context())
	})
	return recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddleware_NamesSpanAfterRoute(t *testing.T) {
	recorder := setupTestTracer(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/post/:id", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(7))
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/post/42", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /post/:id", span.Name())
	assert.Equal(t, resp.Header.Get("X-Trace-ID"), span.SpanContext().TraceID().String())

	postID, ok := spanAttr(span, observability.PostIDKey)
	require.True(t, ok)
	assert.Equal(t, int64(42), postID.AsInt64())

	userID, ok := spanAttr(span, observability.UserIDKey)
	require.True(t, ok)
	assert.Equal(t, int64(7), userID.AsInt64())

	status, ok := spanAttr(span, "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(200), status.AsInt64())
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestTracingMiddleware_RecordsServerErrors(t *testing.T) {
	recorder := setupTestTracer(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/boom", func(*fiber.Ctx) error { return errors.New("boom") })
	app.Get("/missing", func(*fiber.Ctx) error { return fiber.ErrNotFound })

	for _, path := range []string{"/boom", "/missing"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	status, ok := spanAttr(spans[0], "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(500), status.AsInt64())
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	status, ok = spanAttr(spans[1], "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(404), status.AsInt64())
	assert.Equal(t, codes.Unset, spans[1].Status().Code, "client errors do not mark the span failed")
}

func TestTracingMiddleware_ContinuesIncomingTrace(t *testing.T) {
	recorder := setupTestTracer(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/post", func(c *fiber.Ctx) error { return c.SendString("[]") })

	req := httptest.NewRequest(http.MethodGet, "/post", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	resp, err := app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", spans[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", spans[0].Parent().SpanID().String())
}
