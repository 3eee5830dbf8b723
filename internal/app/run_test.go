package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shikshadisha/portal/internal/model"
)

// setStatusTargets は全てのチェック対象を指定したURLに向ける。
func setStatusTargets(t *testing.T, up, down string) {
	t.Helper()
	t.Setenv("FRONTEND_STATUS_URL", up)
	t.Setenv("BACKEND_SERVICE_CORE_BASE_URL", up)
	t.Setenv("BACKEND_SERVICE_AI_PATHWAY_ENGINE_BASE_URL", up)
	t.Setenv("BACKEND_SERVICE_AI_COMPANION_BASE_URL", down)
	t.Setenv("STATUS_CHECK_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "error")
}

func TestRun_StatusCommand_AllReachable_PrintsOperational(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	setStatusTargets(t, srv.URL, srv.URL)

	var buf bytes.Buffer
	if err := Run(&buf, []string{"status"}); err != nil {
		t.Fatalf("Run(status) error = %v", err)
	}

	var report model.StatusReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("stdout should be a JSON report: %v\nraw: %s", err, buf.String())
	}
	if report.Status != model.StatusOperational {
		t.Errorf("status = %q, want %q", report.Status, model.StatusOperational)
	}
	if len(report.Services) != 4 {
		t.Errorf("len(services) = %d, want 4", len(report.Services))
	}
}

func TestRun_StatusCommand_ServiceDown_ReturnsError(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()
	setStatusTargets(t, up.URL, down.URL)

	var buf bytes.Buffer
	err := Run(&buf, []string{"status"})
	if !errors.Is(err, ErrNotOperational) {
		t.Fatalf("Run(status) error = %v, want ErrNotOperational", err)
	}

	var report model.StatusReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("stdout should be a JSON report: %v", err)
	}
	if report.Status != model.StatusIssues {
		t.Errorf("status = %q, want %q", report.Status, model.StatusIssues)
	}
}

func TestRun_HealthcheckCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	t.Setenv("SERVER_PORT", u.Port())

	var buf bytes.Buffer
	if err := Run(&buf, []string{"healthcheck"}); err != nil {
		t.Errorf("Run(healthcheck) error = %v", err)
	}
}

func TestRunHealthcheck_Unhealthy_ReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	if err := runHealthcheck(u.Port()); err == nil {
		t.Error("runHealthcheck should fail on non-200")
	}
}
