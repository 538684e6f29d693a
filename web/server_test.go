package web

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"faq-assistant/config"
	"faq-assistant/faq"
	"faq-assistant/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	store := faq.NewStore(faq.Entry{Question: "Где находится парк?", Answer: "В центре города."})
	r := resolver.New(store, nil, nil, nil, resolver.DefaultOptions(), zap.NewNop())
	cfg := &config.Config{UseSemantic: true, RateLimitPerMinute: 60, RateLimitBurstSize: 1}
	s := NewServer(r, store, 0, zap.NewNop(), cfg)
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func TestServerRoutes(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"query":"где находится парк"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"В центре города.","stage":"exact"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"entries":1`)
}

func TestServerStartAndShutdown(t *testing.T) {
	s := testServer(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
