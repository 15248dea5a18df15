package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/pkg/db/models"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
)

// InitiateResult is returned to the customer starting an online payment.
type InitiateResult struct {
	TransactionID uuid.UUID               `json:"transaction_id"`
	OrderID       uuid.UUID               `json:"order_id"`
	Reference     string                  `json:"reference"`
	Amount        int64                   `json:"amount"`
	Currency      string                  `json:"currency"`
	Status        enums.TransactionStatus `json:"status"`
	Signature     string                  `json:"signature"`
	RedirectURL   string                  `json:"redirect_url"`
	ExpiresAt     time.Time               `json:"expires_at"`
	Reused        bool                    `json:"reused"`
}

// WebhookInput is the gateway callback body. Fields stay raw so the signature is
// checked over exactly what was sent.
type WebhookInput struct {
	OrderID    string
	Reference  string
	Status     string
	PaidAmount *int64
	Signature  string
}

// WebhookResult reports how a callback was applied.
type WebhookResult struct {
	OrderID           uuid.UUID               `json:"order_id"`
	Reference         string                  `json:"reference"`
	TransactionStatus enums.TransactionStatus `json:"transaction_status"`
	PaymentStatus     enums.PaymentStatus     `json:"payment_status"`
	OrderStatus       enums.OrderStatus       `json:"order_status,omitempty"`
	Duplicate         bool                    `json:"duplicate"`
}

// TransactionDTO is the API view of a payment attempt.
type TransactionDTO struct {
	ID          uuid.UUID               `json:"id"`
	OrderID     uuid.UUID               `json:"order_id"`
	Reference   string                  `json:"reference"`
	Amount      int64                   `json:"amount"`
	Currency    string                  `json:"currency"`
	Status      enums.TransactionStatus `json:"status"`
	PaidAmount  *int64                  `json:"paid_amount,omitempty"`
	RedirectURL string                  `json:"redirect_url"`
	ExpiresAt   time.Time               `json:"expires_at"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

func toTransactionDTO(txn models.PaymentTransaction) TransactionDTO {
	return TransactionDTO{
		ID:          txn.ID,
		OrderID:     txn.OrderID,
		Reference:   txn.Reference,
		Amount:      txn.Amount,
		Currency:    txn.Currency,
		Status:      txn.Status,
		PaidAmount:  txn.PaidAmount,
		RedirectURL: txn.RedirectURL,
		ExpiresAt:   txn.ExpiresAt,
		CompletedAt: txn.CompletedAt,
		CreatedAt:   txn.CreatedAt,
	}
}

func toInitiateResult(txn *models.PaymentTransaction, reused bool) *InitiateResult {
	return &InitiateResult{
		TransactionID: txn.ID,
		OrderID:       txn.OrderID,
		Reference:     txn.Reference,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Status:        txn.Status,
		Signature:     txn.Signature,
		RedirectURL:   txn.RedirectURL,
		ExpiresAt:     txn.ExpiresAt,
		Reused:        reused,
	}
}
