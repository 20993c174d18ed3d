package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 3; i++ {
		if rec := do("10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d blocked early: %d", i+1, rec.Code)
		}
	}
	rec := do("10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("request over limit not blocked: %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("blocked response missing Retry-After")
	}

	// Other clients keep their own window
	if rec := do("10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("second client blocked: %d", rec.Code)
	}

	rl.Clear()
	if rec := do("10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("Clear did not lift the block: %d", rec.Code)
	}
}

func TestRateLimiterStatus(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	rl.take("10.0.0.1")
	rl.take("10.0.0.1")
	rl.take("10.0.0.2")

	st := rl.Status()
	if st.Limit != 5 || len(st.Entries) != 2 {
		t.Fatalf("status = %+v", st)
	}
	counts := map[string]int{}
	for _, e := range st.Entries {
		counts[e.IP] = e.Count
	}
	if counts["10.0.0.1"] != 2 || counts["10.0.0.2"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
