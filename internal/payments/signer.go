package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Signer produces and checks gateway signatures. Both directions are
// hex(HMAC-SHA256(secret, fields joined by "|")).
type Signer struct {
	secret []byte
}

// NewSigner binds the shared gateway secret.
func NewSigner(secret string) Signer {
	return Signer{secret: []byte(secret)}
}

// SignInitiation signs orderId|reference|amount|currency.
func (s Signer) SignInitiation(orderID uuid.UUID, reference string, amount int64, currency string) string {
	return s.sign(orderID.String(), reference, strconv.FormatInt(amount, 10), currency)
}

// SignCallback signs orderId|reference|status|paidAmount. An absent paid amount is
// an empty segment.
func (s Signer) SignCallback(orderID, reference, status string, paidAmount *int64) string {
	return s.sign(orderID, reference, status, formatPaidAmount(paidAmount))
}

// VerifyCallback compares in constant time.
func (s Signer) VerifyCallback(orderID, reference, status string, paidAmount *int64, signature string) bool {
	expected := s.SignCallback(orderID, reference, status, paidAmount)
	provided := strings.ToLower(strings.TrimSpace(signature))
	return hmac.Equal([]byte(expected), []byte(provided))
}

func (s Signer) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

func formatPaidAmount(paidAmount *int64) string {
	if paidAmount == nil {
		return ""
	}
	return strconv.FormatInt(*paidAmount, 10)
}
