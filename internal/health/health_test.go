package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChecker_BasicHealth(t *testing.T) {
	checker := NewChecker(&CheckerConfig{
		Version: "1.0.0",
		Timeout: 5 * time.Second,
	})

	response := checker.Check(context.Background())

	if response.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", response.Status)
	}
	if response.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", response.Version)
	}
}

func TestChecker_DeepCheck_StorageHealthy(t *testing.T) {
	checker := NewChecker(&CheckerConfig{
		StorageCheck: func(ctx context.Context) error {
			return nil
		},
		Version: "1.0.0",
	})

	response := checker.DeepCheck(context.Background())

	if response.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", response.Status)
	}
	if response.Components["storage"].Status != StatusHealthy {
		t.Errorf("expected storage component healthy, got %s", response.Components["storage"].Status)
	}
}

func TestChecker_DeepCheck_StorageUnhealthy(t *testing.T) {
	checker := NewChecker(&CheckerConfig{
		StorageCheck: func(ctx context.Context) error {
			return errors.New("storage connection failed")
		},
		Version: "1.0.0",
	})

	response := checker.DeepCheck(context.Background())

	if response.Status != StatusUnhealthy {
		t.Errorf("expected status unhealthy, got %s", response.Status)
	}
	if response.Components["storage"].Status != StatusUnhealthy {
		t.Errorf("expected storage component unhealthy, got %s", response.Components["storage"].Status)
	}
}

func TestChecker_DeepCheck_UnconfiguredComponentsSkipped(t *testing.T) {
	checker := NewChecker(&CheckerConfig{Version: "1.0.0"})

	response := checker.DeepCheck(context.Background())

	if len(response.Components) != 0 {
		t.Errorf("expected no components, got %d", len(response.Components))
	}
	if response.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", response.Status)
	}
}

func TestHandler_Liveness(t *testing.T) {
	handler := NewHandler(NewChecker(&CheckerConfig{Version: "1.0.0"}))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()

	handler.Liveness(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var response Response
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != StatusHealthy {
		t.Errorf("expected status healthy, got %s", response.Status)
	}
}

func TestHandler_Readiness_Unhealthy(t *testing.T) {
	handler := NewHandler(NewChecker(&CheckerConfig{
		StorageCheck: func(ctx context.Context) error {
			return errors.New("down")
		},
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	w := httptest.NewRecorder()

	handler.Readiness(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}
