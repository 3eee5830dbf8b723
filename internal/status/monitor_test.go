package status

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shikshadisha/portal/internal/metrics"
	"github.com/shikshadisha/portal/internal/model"
)

type mockReportChecker struct {
	checkFn func(ctx context.Context) *model.StatusReport
}

func (m *mockReportChecker) Check(ctx context.Context) *model.StatusReport {
	return m.checkFn(ctx)
}

func TestMonitor_RunOnce_RecordsServiceUpGauges(t *testing.T) {
	srv := okServer()
	defer srv.Close()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	checker := NewChecker(nil, []Target{{Name: "Core Service", URL: srv.URL}}, time.Second, collector, newTestLogger())
	m := NewMonitor(checker, "@every 1m", 5*time.Second, newTestLogger())

	report := m.RunOnce(context.Background())
	if report.Status != model.StatusOperational {
		t.Errorf("Status = %q, want operational", report.Status)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() != "portal_service_up" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if metric.GetGauge().GetValue() == 1 {
				found = true
			}
		}
	}
	if !found {
		t.Error("portal_service_up should be 1 for Core Service")
	}
}

func TestMonitor_RunOnce_AppliesTimeout(t *testing.T) {
	var hasDeadline bool
	checker := &mockReportChecker{checkFn: func(ctx context.Context) *model.StatusReport {
		_, hasDeadline = ctx.Deadline()
		return &model.StatusReport{Status: model.StatusOperational}
	}}
	m := NewMonitor(checker, "@every 1m", time.Second, newTestLogger())

	m.RunOnce(context.Background())

	if !hasDeadline {
		t.Error("RunOnce should bound the check with a deadline")
	}
}

func TestMonitor_Start_EmptySchedule_DoesNothing(t *testing.T) {
	checker := &mockReportChecker{checkFn: func(context.Context) *model.StatusReport {
		t.Error("check should not run without a schedule")
		return &model.StatusReport{}
	}}
	m := NewMonitor(checker, "", time.Second, newTestLogger())

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

func TestMonitor_Start_InvalidSchedule_ReturnsError(t *testing.T) {
	checker := &mockReportChecker{checkFn: func(context.Context) *model.StatusReport {
		return &model.StatusReport{}
	}}
	m := NewMonitor(checker, "every now and then", time.Second, newTestLogger())

	if err := m.Start(); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestMonitor_StartStop_RunsScheduledJob(t *testing.T) {
	ran := make(chan struct{}, 1)
	checker := &mockReportChecker{checkFn: func(context.Context) *model.StatusReport {
		select {
		case ran <- struct{}{}:
		default:
		}
		return &model.StatusReport{Status: model.StatusOperational}
	}}
	m := NewMonitor(checker, "@every 1s", time.Second, newTestLogger())

	if err := m.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Error("scheduled check did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m.Stop(ctx)
}
