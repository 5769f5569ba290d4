package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.POST("/x", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := NewClientRateLimiter(6) // burst of 1
	r := newRouter(limiter.RateLimit())

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("10.0.0.1"); code != http.StatusNoContent {
		t.Fatalf("first request = %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", code)
	}
	if code := send("10.0.0.2"); code != http.StatusNoContent {
		t.Errorf("other client = %d, want 204", code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	r := newRouter(NewClientRateLimiter(0).RateLimit())
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
}

func TestCleanupDropsIdleClients(t *testing.T) {
	l := NewClientRateLimiter(60)
	l.limiterFor("a")
	l.limiterFor("b")
	l.clients["a"].lastSeen = time.Now().Add(-time.Hour)

	if removed := l.Cleanup(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := l.clients["b"]; !ok {
		t.Error("active client should be kept")
	}
}

func TestRequestSizeLimit(t *testing.T) {
	r := newRouter(RequestSizeLimit(1))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"small", "hello", http.StatusNoContent},
		{"declared too large", strings.Repeat("a", 2048), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body)))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	t.Run("undeclared length is capped while reading", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("a", 2048)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d", w.Code)
		}
	})
}
