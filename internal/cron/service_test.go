package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/metrics"
)

type fakeLease struct {
	locker *fakeLocker
	job    string
}

func (l *fakeLease) Release(context.Context) error {
	delete(l.locker.held, l.job)
	return nil
}

type fakeLocker struct {
	held map[string]bool
	ttls map[string]time.Duration
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}, ttls: map[string]time.Duration{}}
}

func (f *fakeLocker) TryLock(_ context.Context, job string, ttl time.Duration) (Lease, bool, error) {
	f.ttls[job] = ttl
	if f.held[job] {
		return nil, false, nil
	}
	f.held[job] = true
	return &fakeLease{locker: f, job: job}, true, nil
}

func newTestService(t *testing.T, locker Locker, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	registry := NewRegistry()
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Locker:   locker,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestRunDueRunsAllJobsEvenOnFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	ok := &stubJob{name: "success", interval: time.Minute}
	bad := &stubJob{name: "fail", interval: time.Minute, err: errors.New("boom")}
	svc := newTestService(t, newFakeLocker(), reg, ok, bad)

	err := svc.runDue(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if ok.runs != 1 || bad.runs != 1 {
		t.Fatalf("expected both jobs to run once, got %d and %d", ok.runs, bad.runs)
	}
	if got := testutil.ToFloat64(svc.metrics.SuccessCounter("success")); got != 1 {
		t.Fatalf("expected success metric 1, got %v", got)
	}
	if got := testutil.ToFloat64(svc.metrics.FailureCounter("fail")); got != 1 {
		t.Fatalf("expected failure metric 1, got %v", got)
	}
}

func TestRunDueHonoursJobInterval(t *testing.T) {
	fast := &stubJob{name: "payment-expiry", interval: time.Minute}
	slow := &stubJob{name: "outbox-retention", interval: 24 * time.Hour}
	svc := newTestService(t, newFakeLocker(), nil, fast, slow)

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		if err := svc.runDue(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		now = now.Add(time.Minute)
	}
	if fast.runs != 3 {
		t.Fatalf("expected fast job to run 3 times, ran %d", fast.runs)
	}
	if slow.runs != 1 {
		t.Fatalf("expected slow job to run once, ran %d", slow.runs)
	}
}

func TestRunDueSkipsJobsHeldElsewhere(t *testing.T) {
	locker := newFakeLocker()
	locker.held["payment-expiry"] = true
	job := &stubJob{name: "payment-expiry", interval: time.Minute}
	svc := newTestService(t, locker, nil, job)

	if err := svc.runDue(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected held job to be skipped")
	}
	if locker.ttls["payment-expiry"] != time.Minute {
		t.Fatalf("expected lock ttl to default to the job interval, got %s", locker.ttls["payment-expiry"])
	}
}
