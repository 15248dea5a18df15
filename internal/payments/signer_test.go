package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func expectedMAC(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignInitiation(t *testing.T) {
	signer := NewSigner("s3cret")
	orderID := uuid.MustParse("0b8f7c1e-8c2a-4a55-9f1d-3f0a6b2f9d10")

	got := signer.SignInitiation(orderID, "PAY-1-ABCDEF", 43000, "VND")
	want := expectedMAC("s3cret", orderID.String()+"|PAY-1-ABCDEF|43000|VND")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestVerifyCallback(t *testing.T) {
	signer := NewSigner("s3cret")
	paid := int64(43000)

	sig := expectedMAC("s3cret", "order-1|PAY-1-ABCDEF|success|43000")
	if !signer.VerifyCallback("order-1", "PAY-1-ABCDEF", "success", &paid, sig) {
		t.Fatalf("expected valid signature")
	}
	if !signer.VerifyCallback("order-1", "PAY-1-ABCDEF", "success", &paid, strings.ToUpper(sig)) {
		t.Fatalf("expected hex case to be ignored")
	}
	if signer.VerifyCallback("order-1", "PAY-1-ABCDEF", "failed", &paid, sig) {
		t.Fatalf("expected status change to break the signature")
	}

	empty := expectedMAC("s3cret", "order-1|PAY-1-ABCDEF|failed|")
	if !signer.VerifyCallback("order-1", "PAY-1-ABCDEF", "failed", nil, empty) {
		t.Fatalf("expected absent paid amount to sign as empty segment")
	}
	if NewSigner("other").VerifyCallback("order-1", "PAY-1-ABCDEF", "failed", nil, empty) {
		t.Fatalf("expected a different secret to fail")
	}
}

func TestNewReferenceFormat(t *testing.T) {
	now := time.UnixMilli(1767225600123)
	ref, err := NewReference(now)
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	if !regexp.MustCompile(`^PAY-1767225600123-[A-Z0-9]{6}$`).MatchString(ref) {
		t.Fatalf("unexpected reference %q", ref)
	}
}
