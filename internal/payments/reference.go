package payments

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReference returns PAY-{unixMillis}-{6 uppercase alphanumerics}.
func NewReference(now time.Time) (string, error) {
	max := big.NewInt(int64(len(referenceAlphabet)))
	suffix := make([]byte, 6)
	for i := range suffix {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = referenceAlphabet[idx.Int64()]
	}
	return "PAY-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(suffix), nil
}
