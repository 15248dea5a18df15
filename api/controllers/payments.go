package controllers

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/parcelhub-backend/api/responses"
	"github.com/angelmondragon/parcelhub-backend/api/validators"
	"github.com/angelmondragon/parcelhub-backend/internal/payments"
	"github.com/angelmondragon/parcelhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/parcelhub-backend/pkg/errors"
	"github.com/angelmondragon/parcelhub-backend/pkg/logger"
)

type webhookRequest struct {
	OrderID    string `json:"order_id" validate:"required"`
	Reference  string `json:"reference" validate:"required"`
	Status     string `json:"status" validate:"required"`
	PaidAmount *int64 `json:"paid_amount,omitempty"`
	Signature  string `json:"signature" validate:"required"`
}

type mockCompleteRequest struct {
	Status string `json:"status" validate:"required,oneof=success failed cancelled"`
}

// InitiatePayment starts, or resumes, an online payment for the customer's order.
func InitiatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("payments"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initiate(r.Context(), actor.UserID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Reused {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func ListOrderPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("payments"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListForOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// PaymentWebhook applies a signed gateway callback.
func PaymentWebhook(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("payments"))
			return
		}

		var body webhookRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"order_id":  body.OrderID,
				"reference": body.Reference,
				"status":    body.Status,
			})
		}

		result, err := svc.ApplyWebhook(ctx, payments.WebhookInput{
			OrderID:    strings.TrimSpace(body.OrderID),
			Reference:  strings.TrimSpace(body.Reference),
			Status:     strings.TrimSpace(body.Status),
			PaidAmount: body.PaidAmount,
			Signature:  strings.TrimSpace(body.Signature),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "duplicate", result.Duplicate), "payment.webhook.applied")
		}
		responses.WriteSuccess(w, result)
	}
}

// MockCompletePayment plays the gateway: it signs a callback server-side and applies it.
func MockCompletePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("payments"))
			return
		}

		reference := chiParam(r, "reference")
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference required"))
			return
		}

		var body mockCompleteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MockComplete(r.Context(), reference, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

var checkoutPage = template.Must(template.New("checkout").Parse(`<!doctype html>
<html lang="vi">
<head>
<meta charset="utf-8">
<title>ParcelHub test checkout</title>
<style>
body { font-family: sans-serif; max-width: 32rem; margin: 3rem auto; }
dl { display: grid; grid-template-columns: 8rem 1fr; }
button { margin-right: .5rem; padding: .5rem 1rem; }
</style>
</head>
<body>
<h1>Test checkout</h1>
<dl>
<dt>Order</dt><dd>{{.OrderID}}</dd>
<dt>Reference</dt><dd>{{.Reference}}</dd>
<dt>Amount</dt><dd>{{.Amount}} {{.Currency}}</dd>
<dt>Status</dt><dd id="status">{{.Status}}</dd>
<dt>Expires</dt><dd>{{.ExpiresAt.Format "2006-01-02 15:04:05 MST"}}</dd>
</dl>
{{if .Pending}}
<button data-status="success">Pay</button>
<button data-status="failed">Fail</button>
<button data-status="cancelled">Cancel</button>
{{end}}
<script>
const endpoint = {{.CompleteURL}};
document.querySelectorAll("button[data-status]").forEach(function (btn) {
  btn.addEventListener("click", async function () {
    const res = await fetch(endpoint, {
      method: "POST",
      headers: { "Content-Type": "application/json" },
      body: JSON.stringify({ status: btn.dataset.status })
    });
    const body = await res.json();
    document.getElementById("status").textContent = res.ok ? body.data.transaction_status : body.error.message;
  });
});
</script>
</body>
</html>
`))

type checkoutView struct {
	payments.TransactionDTO
	Pending     bool
	CompleteURL string
}

// MockCheckout renders the test gateway page for a pending transaction.
func MockCheckout(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("payments"))
			return
		}

		orderID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("orderId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "orderId must be a uuid"))
			return
		}
		reference := strings.TrimSpace(r.URL.Query().Get("ref"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "ref required"))
			return
		}

		txn, err := svc.Checkout(r.Context(), orderID, reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var buf bytes.Buffer
		view := checkoutView{
			TransactionDTO: *txn,
			Pending:        txn.Status == enums.TransactionStatusPending,
			CompleteURL:    "/api/payment/mock/" + url.PathEscape(txn.Reference) + "/complete",
		}
		if err := checkoutPage.Execute(&buf, view); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render checkout"))
			return
		}
		responses.WriteHTML(w, http.StatusOK, buf.Bytes())
	}
}
