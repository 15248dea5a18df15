package orders

import (
	"crypto/rand"
	"math/big"
	"time"
)

const (
	upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	digits     = "0123456789"
)

// NewOrderNumber returns ORD-YYYYMMDD-XXXXXX for the given day.
func NewOrderNumber(now time.Time) (string, error) {
	suffix, err := randomString(upperAlnum, 6)
	if err != nil {
		return "", err
	}
	return "ORD-" + now.UTC().Format("20060102") + "-" + suffix, nil
}

// NewTrackingNumber returns PH followed by ten digits.
func NewTrackingNumber() (string, error) {
	body, err := randomString(digits, 10)
	if err != nil {
		return "", err
	}
	return "PH" + body, nil
}

func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
