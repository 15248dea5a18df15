package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/parcelhub-backend/pkg/redis"
)

const (
	eventConsumerName = "order-notifications"
	processedTTL      = 7 * 24 * time.Hour
)

type orderLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Consumer turns events that have no synchronous notifier into inbox entries: order placement
// and payment expiry from the cron worker.
type Consumer struct {
	inbox        notifier
	orders       orderLoader
	subscription *pubsub.Subscriber
	processed    redis.IdempotencyStore
	logg         *logger.Logger
}

// NewConsumer builds the order event notification consumer.
func NewConsumer(inbox notifier, orders orderLoader, subscription *pubsub.Subscriber, processed redis.IdempotencyStore, logg *logger.Logger) (*Consumer, error) {
	if inbox == nil {
		return nil, fmt.Errorf("notification service required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order loader required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if processed == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		inbox:        inbox,
		orders:       orders,
		subscription: subscription,
		processed:    processed,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process returns whether the message should be acked.
func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	switch enums.OutboxEventType(eventType) {
	case enums.EventOrderCreated, enums.EventPaymentExpired:
	default:
		return true
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return true
	}

	key := c.processed.IdempotencyKey("evt:processed:"+eventConsumerName, eventID.String())
	fresh, err := c.processed.SetNX(ctx, key, "1", processedTTL)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	if err := c.handle(ctx, enums.OutboxEventType(eventType), envelope.Data); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.processed.Del(ctx, key)
		return false
	}
	return true
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse order.created: %w", err)
		}
		orderID := payload.OrderID
		_, err := c.inbox.Notify(ctx, NewNotification{
			UserID:  payload.CustomerID,
			OrderID: &orderID,
			Type:    enums.NotificationTypeOrderStatus,
			Title:   "Order placed",
			Message: fmt.Sprintf("Order %s was placed. Track it with %s.", payload.OrderNumber, payload.TrackingNumber),
		})
		return err
	case enums.EventPaymentExpired:
		var payload payloads.PaymentEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse payment.expired: %w", err)
		}
		order, err := c.orders.FindByID(ctx, payload.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		orderID := order.ID
		_, err = c.inbox.Notify(ctx, NewNotification{
			UserID:  order.CustomerID,
			OrderID: &orderID,
			Type:    enums.NotificationTypePayment,
			Title:   "Payment expired",
			Message: fmt.Sprintf("Payment %s for order %s expired before completion.", payload.Reference, order.OrderNumber),
		})
		return err
	}
	return nil
}
