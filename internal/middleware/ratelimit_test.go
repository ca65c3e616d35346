package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newRateLimitedHandler(t *testing.T, limit int) (http.Handler, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	config := RateLimitConfig{
		RequestsPerWindow: limit,
		Window:            time.Minute,
		KeyPrefix:         "squadstash_rate_limit",
	}

	handler := RateLimitMiddleware(redisClient, config, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	cleanup := func() {
		redisClient.Close()
		mr.Close()
	}
	return handler, cleanup
}

func TestRateLimitBlocksExcessiveRequests(t *testing.T) {
	const limit = 5
	handler, cleanup := newRateLimitedHandler(t, limit)
	defer cleanup()

	for i := 0; i < limit; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/items", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("request %d within limit got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("request over limit should get 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}
}

func TestRateLimitTracksClientsSeparately(t *testing.T) {
	handler, cleanup := newRateLimitedHandler(t, 1)
	defer cleanup()

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(first, req)

	other := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/items", nil)
	req2.RemoteAddr = "10.0.0.2:1234"
	handler.ServeHTTP(other, req2)

	if first.Code != http.StatusOK || other.Code != http.StatusOK {
		t.Errorf("distinct clients must not share a counter: %d, %d", first.Code, other.Code)
	}
}
