package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox"
	"github.com/angelmondragon/parcelhub-backend/pkg/outbox/payloads"
)

type memoryProcessed struct {
	keys   map[string]string
	setErr error
}

func (m *memoryProcessed) Get(ctx context.Context, key string) (string, error) {
	return m.keys[key], nil
}

func (m *memoryProcessed) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryProcessed) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (m *memoryProcessed) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type mapOrders map[uuid.UUID]*models.Order

func (m mapOrders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := m[id]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestConsumer(inbox notifier, orders orderLoader, processed *memoryProcessed) *Consumer {
	return &Consumer{
		inbox:     inbox,
		orders:    orders,
		processed: processed,
		logg:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func envelopeBytes(t *testing.T, eventID uuid.UUID, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID.String(), OccurredAt: time.Now().UTC(), Data: raw})
	require.NoError(t, err)
	return body
}

func TestConsumer_OrderCreatedNotifiesOnce(t *testing.T) {
	inbox := &captureNotifier{}
	processed := &memoryProcessed{keys: map[string]string{}}
	c := newTestConsumer(inbox, mapOrders{}, processed)

	customerID := uuid.New()
	body := envelopeBytes(t, uuid.New(), payloads.OrderCreatedEvent{
		OrderID:        uuid.New(),
		OrderNumber:    "ORD-20260301-0002",
		TrackingNumber: "PH0000000002",
		CustomerID:     customerID,
	})

	assert.True(t, c.process(context.Background(), "m-1", string(enums.EventOrderCreated), body))
	assert.True(t, c.process(context.Background(), "m-2", string(enums.EventOrderCreated), body))

	require.Len(t, inbox.sent, 1)
	assert.Equal(t, customerID, inbox.sent[0].UserID)
	assert.Equal(t, "Order placed", inbox.sent[0].Title)
	assert.Contains(t, inbox.sent[0].Message, "PH0000000002")
}

func TestConsumer_PaymentExpiredLoadsCustomer(t *testing.T) {
	inbox := &captureNotifier{}
	order := &models.Order{ID: uuid.New(), OrderNumber: "ORD-20260301-0003", CustomerID: uuid.New()}
	c := newTestConsumer(inbox, mapOrders{order.ID: order}, &memoryProcessed{keys: map[string]string{}})

	body := envelopeBytes(t, uuid.New(), payloads.PaymentEvent{OrderID: order.ID, Reference: "PAY-9", Status: enums.TransactionStatusExpired})
	assert.True(t, c.process(context.Background(), "m-1", string(enums.EventPaymentExpired), body))

	require.Len(t, inbox.sent, 1)
	assert.Equal(t, order.CustomerID, inbox.sent[0].UserID)
	assert.Equal(t, enums.NotificationTypePayment, inbox.sent[0].Type)
}

func TestConsumer_IgnoresOtherEventsAndBadPayloads(t *testing.T) {
	inbox := &captureNotifier{}
	c := newTestConsumer(inbox, mapOrders{}, &memoryProcessed{keys: map[string]string{}})

	assert.True(t, c.process(context.Background(), "m-1", string(enums.EventOrderStatusChanged), []byte("{}")))
	assert.True(t, c.process(context.Background(), "m-2", string(enums.EventOrderCreated), []byte("not json")))
	assert.Empty(t, inbox.sent)
}

func TestConsumer_RetriesAfterFailure(t *testing.T) {
	inbox := &captureNotifier{err: errors.New("db down")}
	processed := &memoryProcessed{keys: map[string]string{}}
	c := newTestConsumer(inbox, mapOrders{}, processed)

	body := envelopeBytes(t, uuid.New(), payloads.OrderCreatedEvent{OrderID: uuid.New(), CustomerID: uuid.New()})
	assert.False(t, c.process(context.Background(), "m-1", string(enums.EventOrderCreated), body))
	assert.Empty(t, processed.keys, "failed event must stay retryable")

	inbox.err = nil
	assert.True(t, c.process(context.Background(), "m-2", string(enums.EventOrderCreated), body))
	assert.Len(t, inbox.sent, 2)
}

func TestConsumer_NacksWhenIdempotencyStoreFails(t *testing.T) {
	inbox := &captureNotifier{}
	c := newTestConsumer(inbox, mapOrders{}, &memoryProcessed{keys: map[string]string{}, setErr: errors.New("redis down")})

	body := envelopeBytes(t, uuid.New(), payloads.OrderCreatedEvent{OrderID: uuid.New(), CustomerID: uuid.New()})
	assert.False(t, c.process(context.Background(), "m-1", string(enums.EventOrderCreated), body))
	assert.Empty(t, inbox.sent)
}
