package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, inbound string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var captured string
	router := gin.New()
	router.Use(Middleware())
	router.GET("/", func(c *gin.Context) {
		captured = Value(c)
		c.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set("X-Request-ID", inbound)
	}
	router.ServeHTTP(recorder, req)
	return recorder, captured
}

func TestRequestIDGenerated(t *testing.T) {
	recorder, captured := serve(t, "")

	id := recorder.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatalf("expected a generated request id")
	}
	if captured != id {
		t.Fatalf("context id %q does not match header %q", captured, id)
	}
}

func TestRequestIDKeepsWellFormedInbound(t *testing.T) {
	recorder, captured := serve(t, "upstream-7f3a.01")

	if got := recorder.Header().Get("X-Request-ID"); got != "upstream-7f3a.01" {
		t.Fatalf("expected inbound id echoed, got %q", got)
	}
	if captured != "upstream-7f3a.01" {
		t.Fatalf("unexpected context id: %q", captured)
	}
}

func TestRequestIDReplacesSuspiciousInbound(t *testing.T) {
	cases := []string{
		"has spaces",
		"new\nline",
		strings.Repeat("a", 65),
	}
	for _, inbound := range cases {
		recorder, _ := serve(t, inbound)
		if got := recorder.Header().Get("X-Request-ID"); got == inbound || got == "" {
			t.Fatalf("expected %q replaced, got %q", inbound, got)
		}
	}
}
