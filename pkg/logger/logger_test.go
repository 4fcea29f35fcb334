package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNewWithWriter_TagsServiceAndTenant(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "prod", "dialer-api")
	ctx := With(context.Background(), l)

	ForTenant(ctx, "t-1").Info("dispatch")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if line["service"] != "dialer-api" || line["tenant_id"] != "t-1" {
		t.Fatalf("unexpected attrs: %v", line)
	}
}

func TestNewWithWriter_ProdSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "prod", "").Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no debug output in prod, got %q", buf.String())
	}
}

func TestMiddleware_SetsRequestIDAndTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Middleware(NewWithWriter(&buf, "prod", "")))
	r.GET("/x", func(c *gin.Context) {
		c.Set(TenantKey, "t-9")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "rid-1")
	r.ServeHTTP(w, req)

	if got := w.Header().Get(headerRequestID); got != "rid-1" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if line["request_id"] != "rid-1" || line["tenant_id"] != "t-9" {
		t.Fatalf("unexpected attrs: %v", line)
	}
}

func TestMiddleware_ServerErrorsLogAtError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Middleware(NewWithWriter(&buf, "prod", "")))
	r.POST("/webhooks/retell", func(c *gin.Context) {
		FromGin(c).Info("handling")
		c.Status(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/webhooks/retell", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected handler line and summary, got %q", buf.String())
	}
	var handler, summary map[string]any
	_ = json.Unmarshal(lines[0], &handler)
	_ = json.Unmarshal(lines[1], &summary)
	if handler["request_id"] == nil || handler["request_id"] == "" {
		t.Fatalf("handler logger should carry request_id: %v", handler)
	}
	if summary["level"] != "ERROR" {
		t.Fatalf("expected ERROR summary, got %v", summary["level"])
	}
}
