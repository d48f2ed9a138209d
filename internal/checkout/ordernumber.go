package checkout

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Unambiguous uppercase alphanumerics for the public order number suffix.
const numberCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const numberSuffixLen = 6

// GenerateOrderNumber builds a public order number of the form
// ORD-YYYYMMDD-XXXXXX. Collisions are possible and handled by the caller
// retrying.
func GenerateOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating order number: %w", err)
	}
	for i := range buf {
		buf[i] = numberCharset[int(buf[i])%len(numberCharset)]
	}
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), string(buf)), nil
}
