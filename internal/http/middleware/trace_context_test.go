package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yungbote/pathprogress/internal/platform/ctxutil"
)

func TestTraceContextPropagatesHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-1" || seen.TraceID == "" {
		t.Fatalf("trace data: %+v", seen)
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-1" {
		t.Fatalf("X-Request-Id: got=%q", got)
	}
	if got := rec.Header().Get("X-Trace-Id"); got != seen.TraceID {
		t.Fatalf("X-Trace-Id: want=%q got=%q", seen.TraceID, got)
	}
}

func TestTraceContextStampsPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx, span := tp.Tracer("test").Start(c.Request.Context(), c.FullPath())
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.Use(AttachTraceContext())
	var fields []interface{}
	r.GET("/api/paths/:id/progress/:slug", func(c *gin.Context) {
		fields = ctxutil.LogFields(c.Request.Context())
		c.Status(http.StatusOK)
	})
	r.GET("/api/paths", func(c *gin.Context) {
		fields = ctxutil.LogFields(c.Request.Context())
		c.Status(http.StatusOK)
	})

	const pathID = "0b6f6a2e-4a61-4f0e-9a57-1d7c3c2b9e10"
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/paths/"+pathID+"/progress/intro-to-go", nil))
	if got := fieldValue(fields, "path_id"); got != pathID {
		t.Fatalf("path_id log field: want=%q got=%v (fields=%v)", pathID, got, fields)
	}
	ended := spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("spans: want=1 got=%d", len(ended))
	}
	var onSpan string
	for _, kv := range ended[0].Attributes() {
		if kv.Key == "path_id" {
			onSpan = kv.Value.AsString()
		}
	}
	if onSpan != pathID {
		t.Fatalf("path_id span attribute: want=%q got=%q", pathID, onSpan)
	}
	if got := fieldValue(fields, "trace_id"); got != ended[0].SpanContext().TraceID().String() {
		t.Fatalf("trace_id: want span trace id, got=%v", got)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/paths", nil))
	if got := fieldValue(fields, "path_id"); got != nil {
		t.Fatalf("path_id on list route: got=%v", got)
	}
}

func fieldValue(fields []interface{}, key string) interface{} {
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i] == key {
			return fields[i+1]
		}
	}
	return nil
}
