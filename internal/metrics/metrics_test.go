package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics_RecordRequest(t *testing.T) {
	m := New()

	m.RecordRequest("GET", "/api/blog", 200, 100*time.Millisecond)
	m.RecordRequest("GET", "/api/blog", 200, 150*time.Millisecond)
	m.RecordRequest("GET", "/api/blog", 500, 50*time.Millisecond)

	handler := m.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	body := w.Body.String()

	if !strings.Contains(body, `devfolio_http_requests_total{endpoint="/api/blog",method="GET"} 3`) {
		t.Errorf("expected request count 3, got:\n%s", body)
	}
	if !strings.Contains(body, "devfolio_http_request_duration_seconds") {
		t.Error("expected duration histogram metric")
	}
	if !strings.Contains(body, `status_class="5xx"`) {
		t.Error("expected 5xx error counter")
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/users/42", "/api/users/{id}"},
		{"/api/blog/my-first-post", "/api/blog/{slug}"},
		{"/api/blog/17/publish", "/api/blog/{id}/publish"},
		{"/api/projects/portfolio-site", "/api/projects/{slug}"},
		{"/api/auth/login", "/api/auth/login"},
		{"/health", "/health"},
	}

	for _, tt := range tests {
		if got := normalizeEndpoint(tt.path); got != tt.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMetrics_CustomCountersAndGauges(t *testing.T) {
	m := New()

	m.IncCounter("logins")
	m.IncCounter("logins")
	m.SetGauge("cache_keys", 12)

	handler := m.Handler()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler(w, req)

	body := w.Body.String()

	if !strings.Contains(body, `devfolio_counter{name="logins"} 2`) {
		t.Errorf("expected logins counter 2, got:\n%s", body)
	}
	if !strings.Contains(body, `devfolio_gauge{name="cache_keys"}`) {
		t.Errorf("expected cache_keys gauge, got:\n%s", body)
	}
}

func TestMetrics_Middleware(t *testing.T) {
	m := New()

	handler := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	mw := httptest.NewRecorder()
	m.Handler()(mw, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := mw.Body.String()
	if !strings.Contains(body, `devfolio_http_requests_total{endpoint="/api/projects",method="GET"} 1`) {
		t.Errorf("expected middleware-recorded request, got:\n%s", body)
	}
	if !strings.Contains(body, `status_class="4xx"`) {
		t.Errorf("expected 4xx error class, got:\n%s", body)
	}
}
