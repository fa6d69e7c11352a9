package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMiddlewareAveragesAcrossRequests(t *testing.T) {
	m := NewMiddleware(nil)
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	metrics := m.GetMetrics()
	if metrics.TotalRequests != 3 {
		t.Fatalf("TotalRequests = %d, want 3", metrics.TotalRequests)
	}
	// Each request slept 1ms, so the mean must be at least that.
	if metrics.AverageResponseTime < 1000 {
		t.Errorf("AverageResponseTime = %dus, want >= 1000", metrics.AverageResponseTime)
	}
}

func TestMiddlewareAverageNotLastValue(t *testing.T) {
	m := NewMiddleware(nil)
	slow := true
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slow {
			time.Sleep(20 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	slowAvg := m.GetMetrics().AverageResponseTime

	slow = false
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	// The fast second request halves the count's weight but cannot erase
	// the slow one the way overwriting with the latest duration would.
	got := m.GetMetrics().AverageResponseTime
	if got < slowAvg/4 {
		t.Errorf("AverageResponseTime = %dus after fast request, want >= %dus", got, slowAvg/4)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id = %q, want req_ prefix", seen)
	}
}
