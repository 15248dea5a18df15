package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/internal/orders"
	"github.com/angelmondragon/parcelhub-backend/pkg/config"
	"github.com/angelmondragon/parcelhub-backend/pkg/db"
	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox/payloads"
)

const (
	pendingIndex = "ux_payment_transactions_order_pending"
	// InvalidSignatureMessage is returned verbatim to the gateway on a bad signature.
	InvalidSignatureMessage = "Chữ ký không hợp lệ"
	mockCheckoutPath        = "/api/payment/mock/checkout"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Notifier is told about resolved payments after commit.
type Notifier interface {
	PaymentResolved(ctx context.Context, order *models.Order, txn *models.PaymentTransaction) error
}

// Service runs the payment transaction lifecycle.
type Service interface {
	Initiate(ctx context.Context, customerID, orderID uuid.UUID) (*InitiateResult, error)
	ApplyWebhook(ctx context.Context, input WebhookInput) (*WebhookResult, error)
	MockComplete(ctx context.Context, reference, status string) (*WebhookResult, error)
	Checkout(ctx context.Context, orderID uuid.UUID, reference string) (*TransactionDTO, error)
	ListForOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) ([]TransactionDTO, error)
	ExpireOverdue(ctx context.Context, limit int) (int, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	signer   Signer
	cfg      config.PaymentConfig
	replay   ReplayGuard
	notifier Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the payment service. replay and notifier are optional.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, cfg config.PaymentConfig, replay ReplayGuard, notifier Notifier, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if strings.TrimSpace(cfg.GatewaySecret) == "" {
		return nil, fmt.Errorf("payment gateway secret required")
	}
	if cfg.ExpirationMinutes <= 0 {
		return nil, fmt.Errorf("payment expiration must be positive")
	}
	if cfg.Currency == "" {
		cfg.Currency = "VND"
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outbox,
		signer:   NewSigner(cfg.GatewaySecret),
		cfg:      cfg,
		replay:   replay,
		notifier: notifier,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Initiate(ctx context.Context, customerID, orderID uuid.UUID) (*InitiateResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *InitiateResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return mapNotFound(err, "order not found")
		}
		if order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", order.Status))
		}
		if order.PaymentMethod != enums.PaymentMethodOnline {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cash on delivery orders are paid to the shipper")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
		}

		now := s.now()
		stale, err := repo.ExpireStale(ctx, order.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire stale payments")
		}
		for i := range stale {
			stale[i].Status = enums.TransactionStatusExpired
			if err := s.emit(ctx, tx, enums.EventPaymentExpired, order, &stale[i]); err != nil {
				return err
			}
		}

		active, err := repo.FindActivePending(ctx, order.ID, now)
		if err == nil {
			result = toInitiateResult(active, true)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending payment")
		}

		reference, err := NewReference(now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate payment reference")
		}
		amount := order.ShippingFee + order.InsuranceFee
		txn := &models.PaymentTransaction{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Reference:   reference,
			Amount:      amount,
			Currency:    s.cfg.Currency,
			Status:      enums.TransactionStatusPending,
			Signature:   s.signer.SignInitiation(order.ID, reference, amount, s.cfg.Currency),
			RedirectURL: s.redirectURL(order.ID, reference),
			ExpiresAt:   now.Add(s.cfg.Expiration()),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Create(ctx, txn); err != nil {
			if db.IsUniqueViolation(err, pendingIndex) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a payment is already pending for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment transaction")
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status":    enums.PaymentStatusPending,
			"payment_reference": reference,
			"updated_at":        now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment")
		}
		if err := s.emit(ctx, tx, enums.EventPaymentInitiated, order, txn); err != nil {
			return err
		}
		result = toInitiateResult(txn, false)
		return nil
	})
	if err != nil {
		return nil, asTyped(err, "initiate payment")
	}
	return result, nil
}

func (s *service) redirectURL(orderID uuid.UUID, reference string) string {
	query := url.Values{}
	query.Set("orderId", orderID.String())
	query.Set("ref", reference)
	return strings.TrimRight(s.cfg.GatewayBaseURL, "/") + mockCheckoutPath + "?" + query.Encode()
}

func (s *service) ApplyWebhook(ctx context.Context, input WebhookInput) (*WebhookResult, error) {
	if err := validateWebhook(input); err != nil {
		return nil, err
	}
	if !s.signer.VerifyCallback(input.OrderID, input.Reference, input.Status, input.PaidAmount, input.Signature) {
		return nil, pkgerrors.New(pkgerrors.CodeSignature, InvalidSignatureMessage)
	}
	gatewayStatus, err := enums.ParseGatewayStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be success, failed or cancelled")
	}
	orderID, err := uuid.Parse(strings.TrimSpace(input.OrderID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_id")
	}
	if input.PaidAmount != nil && *input.PaidAmount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paid_amount must not be negative")
	}
	target := gatewayStatus.TransactionStatus()
	reference := strings.TrimSpace(input.Reference)

	key := replayKey(orderID.String(), reference, string(target))
	claimed := s.claim(ctx, key)
	if !claimed {
		// A held claim only proves an earlier delivery started. Answer from the stored
		// row when it already settled, otherwise take the locked path below.
		if result, ok := s.settled(ctx, orderID, reference, target); ok {
			return result, nil
		}
	}

	result, order, txn, err := s.apply(ctx, orderID, reference, target, input.PaidAmount)
	if err != nil {
		if claimed {
			s.release(ctx, key)
		}
		return nil, asTyped(err, "apply payment callback")
	}
	if !result.Duplicate {
		s.notify(ctx, order, txn)
	}
	return result, nil
}

// settled reports the stored outcome when the transaction already resolved to target
// for this order. Anything else, including read errors, defers to apply.
func (s *service) settled(ctx context.Context, orderID uuid.UUID, reference string, target enums.TransactionStatus) (*WebhookResult, bool) {
	txn, err := s.repo.FindByReference(ctx, reference)
	if err != nil || txn.OrderID != orderID || txn.Status != target {
		return nil, false
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil || order.PaymentReference == nil || *order.PaymentReference != reference {
		return nil, false
	}
	return &WebhookResult{
		OrderID:           order.ID,
		Reference:         reference,
		TransactionStatus: txn.Status,
		PaymentStatus:     order.PaymentStatus,
		OrderStatus:       order.Status,
		Duplicate:         true,
	}, true
}

func (s *service) apply(ctx context.Context, orderID uuid.UUID, reference string, target enums.TransactionStatus, paidAmount *int64) (*WebhookResult, *models.Order, *models.PaymentTransaction, error) {
	var (
		result *WebhookResult
		order  *models.Order
		txn    *models.PaymentTransaction
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return mapNotFound(err, "order not found")
		}
		current, err := repo.FindByReference(ctx, reference)
		if err != nil {
			return mapNotFound(err, "payment transaction not found")
		}
		if current.OrderID != locked.ID || locked.PaymentReference == nil || *locked.PaymentReference != reference {
			return pkgerrors.New(pkgerrors.CodeConflict, "reference does not match the order's current payment").
				WithDetails(map[string]any{"reference": reference})
		}

		// Money captured after the order closed is kept on record and queued for refund.
		lateCapture := target == enums.TransactionStatusSucceeded && locked.Status.IsTerminal() &&
			(current.Status == enums.TransactionStatusPending || current.Status == enums.TransactionStatusCancelled)

		if current.Status.IsResolved() && !lateCapture {
			if current.Status == target {
				result = &WebhookResult{
					OrderID:           locked.ID,
					Reference:         reference,
					TransactionStatus: current.Status,
					PaymentStatus:     locked.PaymentStatus,
					OrderStatus:       locked.Status,
					Duplicate:         true,
				}
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("payment is already %s", current.Status)).
				WithDetails(map[string]any{"current_status": current.Status})
		}

		now := s.now()
		txnUpdates := map[string]any{
			"status":       target,
			"completed_at": now,
			"updated_at":   now,
		}
		if paidAmount != nil {
			txnUpdates["paid_amount"] = *paidAmount
		}
		if err := repo.UpdateTransaction(ctx, current.ID, txnUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment transaction")
		}
		current.Status = target
		current.PaidAmount = paidAmount
		current.CompletedAt = &now

		paymentStatus := target.PaymentStatus()
		if lateCapture {
			paymentStatus = enums.PaymentStatusRefundPending
		}
		orderUpdates := map[string]any{
			"payment_status": paymentStatus,
			"updated_at":     now,
		}
		from := locked.Status
		advanced := false
		if target == enums.TransactionStatusSucceeded && !lateCapture {
			orderUpdates["total_amount"] = locked.ShippingFee + locked.InsuranceFee
			if locked.Status == enums.OrderStatusPending || locked.Status == enums.OrderStatusCODPending {
				orderUpdates["status"] = enums.OrderStatusProcessing
				orderUpdates["processing_at"] = now
				advanced = true
			}
		}
		if err := repo.UpdateOrder(ctx, locked.ID, orderUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment")
		}
		locked.PaymentStatus = paymentStatus
		if advanced {
			locked.Status = enums.OrderStatusProcessing
			locked.ProcessingAt = &now
			note := "payment received"
			if err := repo.AppendHistory(ctx, orders.NewHistoryEntry(locked.ID, enums.OrderStatusProcessing, &note, orders.Actor{})); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append order history")
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderStatusChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   locked.ID,
				OccurredAt:    now,
				Data: payloads.OrderStatusChangedEvent{
					OrderID:    locked.ID,
					CustomerID: locked.CustomerID,
					From:       from,
					To:         enums.OrderStatusProcessing,
					Notes:      &note,
					ChangedAt:  now,
				},
			}); err != nil {
				return err
			}
		}

		eventType := enums.EventPaymentFailed
		if target == enums.TransactionStatusSucceeded {
			eventType = enums.EventPaymentSucceeded
		}
		if err := s.emit(ctx, tx, eventType, locked, current); err != nil {
			return err
		}

		order = locked
		txn = current
		result = &WebhookResult{
			OrderID:           locked.ID,
			Reference:         reference,
			TransactionStatus: target,
			PaymentStatus:     locked.PaymentStatus,
			OrderStatus:       locked.Status,
		}
		return nil
	})
	return result, order, txn, err
}

func validateWebhook(input WebhookInput) error {
	missing := []string{}
	if strings.TrimSpace(input.OrderID) == "" {
		missing = append(missing, "order_id")
	}
	if strings.TrimSpace(input.Reference) == "" {
		missing = append(missing, "reference")
	}
	if strings.TrimSpace(input.Status) == "" {
		missing = append(missing, "status")
	}
	if strings.TrimSpace(input.Signature) == "" {
		missing = append(missing, "signature")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func (s *service) MockComplete(ctx context.Context, reference, status string) (*WebhookResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	gatewayStatus, err := enums.ParseGatewayStatus(status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be success, failed or cancelled")
	}
	txn, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, mapNotFound(err, "payment transaction not found")
	}

	var paid *int64
	if gatewayStatus == enums.GatewayStatusSuccess {
		amount := txn.Amount
		paid = &amount
	}
	orderID := txn.OrderID.String()
	return s.ApplyWebhook(ctx, WebhookInput{
		OrderID:    orderID,
		Reference:  reference,
		Status:     string(gatewayStatus),
		PaidAmount: paid,
		Signature:  s.signer.SignCallback(orderID, reference, string(gatewayStatus), paid),
	})
}

func (s *service) Checkout(ctx context.Context, orderID uuid.UUID, reference string) (*TransactionDTO, error) {
	txn, err := s.repo.FindByReference(ctx, strings.TrimSpace(reference))
	if err != nil {
		return nil, mapNotFound(err, "payment transaction not found")
	}
	if txn.OrderID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment transaction not found")
	}
	dto := toTransactionDTO(*txn)
	return &dto, nil
}

func (s *service) ListForOrder(ctx context.Context, actor orders.Actor, orderID uuid.UUID) ([]TransactionDTO, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapNotFound(err, "order not found")
	}
	if !orders.CanView(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	rows, err := s.repo.ListForOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTransactionDTO(row))
	}
	return out, nil
}

// ExpireOverdue expires up to limit overdue pending transactions. The order's
// payment status follows only while it still points at the expired reference.
func (s *service) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	overdue, err := s.repo.ListOverdue(ctx, s.now(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue payments")
	}

	expired := 0
	for _, candidate := range overdue {
		ok, err := s.expireOne(ctx, candidate)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *service) expireOne(ctx context.Context, candidate models.PaymentTransaction) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, candidate.OrderID)
		if err != nil {
			return mapNotFound(err, "order not found")
		}
		txn, err := repo.FindByReference(ctx, candidate.Reference)
		if err != nil {
			return mapNotFound(err, "payment transaction not found")
		}
		now := s.now()
		if txn.Status != enums.TransactionStatusPending || txn.ExpiresAt.After(now) {
			return nil
		}
		if err := repo.UpdateTransaction(ctx, txn.ID, map[string]any{
			"status":     enums.TransactionStatusExpired,
			"updated_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire payment transaction")
		}
		txn.Status = enums.TransactionStatusExpired
		if order.PaymentReference != nil && *order.PaymentReference == txn.Reference &&
			order.PaymentStatus == enums.PaymentStatusPending {
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
				"payment_status": enums.PaymentStatusExpired,
				"updated_at":     now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire order payment")
			}
			order.PaymentStatus = enums.PaymentStatusExpired
		}
		expired = true
		return s.emit(ctx, tx, enums.EventPaymentExpired, order, txn)
	})
	if err != nil {
		return false, asTyped(err, "expire payment")
	}
	return expired, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, order *models.Order, txn *models.PaymentTransaction) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePaymentTransaction,
		AggregateID:   txn.ID,
		Data: payloads.PaymentEvent{
			OrderID:       order.ID,
			TransactionID: txn.ID,
			Reference:     txn.Reference,
			Amount:        txn.Amount,
			PaidAmount:    txn.PaidAmount,
			Status:        txn.Status,
			PaymentStatus: txn.Status.PaymentStatus(),
		},
	})
}

func (s *service) claim(ctx context.Context, key string) bool {
	if s.replay == nil {
		return true
	}
	ok, err := s.replay.Claim(ctx, key, s.cfg.WebhookReplayTTL)
	if err != nil {
		// Fall through to the row-level check.
		s.warn(ctx, "payment replay guard unavailable", key, err)
		return true
	}
	return ok
}

func (s *service) release(ctx context.Context, key string) {
	if s.replay == nil {
		return
	}
	if err := s.replay.Release(ctx, key); err != nil {
		s.warn(ctx, "payment replay guard release failed", key, err)
	}
}

func (s *service) notify(ctx context.Context, order *models.Order, txn *models.PaymentTransaction) {
	if s.notifier == nil || order == nil || txn == nil {
		return
	}
	if err := s.notifier.PaymentResolved(ctx, order, txn); err != nil {
		s.warn(ctx, "payment notification failed", txn.Reference, err)
	}
}

func (s *service) warn(ctx context.Context, msg, reference string, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"reference": reference,
		"error":     err.Error(),
	})
	s.logg.Warn(logCtx, msg)
}

func mapNotFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func asTyped(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
