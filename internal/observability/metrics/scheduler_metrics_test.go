package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/restobill/pkg/errs"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: fmt.Errorf("sweep: %w", &pgconn.PgError{Code: "40001"}), want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "conflict", err: errs.Conflict("version_mismatch"), want: SchedulerJobReasonConflict},
		{name: "dependency", err: errs.Dependency(errors.New("io"), "load"), want: SchedulerJobReasonDependency},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{ServiceName: "restobill", Environment: "test"})

	metrics.AddBatchProcessed("expire_subscriptions", "subscriptions", 3)
	metrics.AddBatchProcessed("expire_subscriptions", "subscriptions", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("expire_subscriptions", "subscriptions"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestObserveJobDuration(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{ServiceName: "restobill", Environment: "test"})

	metrics.ObserveJobDuration("trial_notices", 40*time.Millisecond)
	metrics.ObserveJobDuration("trial_notices", 3*time.Second)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() != "restobill_scheduler_job_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			hist = m.GetHistogram()
		}
	}
	if hist == nil {
		t.Fatal("duration histogram not gathered")
	}
	if hist.GetSampleCount() != 2 {
		t.Fatalf("expected 2 samples, got %d", hist.GetSampleCount())
	}
	if got := hist.GetSampleSum(); got < 3.03 || got > 3.05 {
		t.Fatalf("expected sample sum near 3.04, got %v", got)
	}
}
