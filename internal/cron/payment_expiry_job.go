package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
)

const (
	defaultExpiryBatch = 200
	paymentExpiryEvery = time.Minute
)

type paymentExpirer interface {
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

type PaymentExpiryJobParams struct {
	Logger   *logger.Logger
	Payments paymentExpirer
	Batch    int
	Every    time.Duration
}

// NewPaymentExpiryJob expires pending online payments whose window has closed.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	every := params.Every
	if every <= 0 {
		every = paymentExpiryEvery
	}
	return &paymentExpiryJob{logg: params.Logger, payments: params.Payments, batch: batch, every: every}, nil
}

type paymentExpiryJob struct {
	logg     *logger.Logger
	payments paymentExpirer
	batch    int
	every    time.Duration
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Interval() time.Duration { return j.every }

// Run drains overdue payments in batches until a short batch signals the backlog is gone.
func (j *paymentExpiryJob) Run(ctx context.Context) error {
	total := 0
	for {
		expired, err := j.payments.ExpireOverdue(ctx, j.batch)
		total += expired
		if err != nil {
			return fmt.Errorf("expire payments after %d: %w", total, err)
		}
		if expired < j.batch || ctx.Err() != nil {
			break
		}
	}
	if total > 0 {
		logCtx := j.logg.WithField(ctx, "expired", total)
		j.logg.Info(logCtx, "expired overdue payments")
	}
	return nil
}
