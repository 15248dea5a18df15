package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
)

type fakePurger struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakePurger) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

type fakeExpirer struct {
	batches []int
	calls   int
	err     error
}

func (f *fakeExpirer) ExpireOverdue(_ context.Context, limit int) (int, error) {
	if f.calls >= len(f.batches) {
		return 0, f.err
	}
	n := f.batches[f.calls]
	f.calls++
	return n, nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestOutboxRetentionJobUsesCutoff(t *testing.T) {
	repo := &fakePurger{deleted: 4}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: quietLogger(), Repository: repo, Retention: 48 * time.Hour})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	impl := job.(*outboxRetentionJob)
	now := time.Date(2026, 5, 3, 12, 0, 0, 0, time.UTC)
	impl.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := now.Add(-48 * time.Hour); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
	if job.Interval() != 24*time.Hour {
		t.Fatalf("unexpected interval %s", job.Interval())
	}
}

func TestOutboxRetentionJobWrapsErrors(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: quietLogger(), Repository: &fakePurger{err: errors.New("db down")}})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestPaymentExpiryJobDrainsFullBatches(t *testing.T) {
	expirer := &fakeExpirer{batches: []int{10, 10, 3}}
	job, err := NewPaymentExpiryJob(PaymentExpiryJobParams{Logger: quietLogger(), Payments: expirer, Batch: 10})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.calls != 3 {
		t.Fatalf("expected 3 batches, got %d", expirer.calls)
	}
	if job.Name() != "payment-expiry" || job.Interval() != time.Minute {
		t.Fatalf("unexpected job identity %s/%s", job.Name(), job.Interval())
	}
}

func TestPaymentExpiryJobStopsOnError(t *testing.T) {
	expirer := &fakeExpirer{batches: []int{5}, err: errors.New("db down")}
	job, err := NewPaymentExpiryJob(PaymentExpiryJobParams{Logger: quietLogger(), Payments: expirer, Batch: 5})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
