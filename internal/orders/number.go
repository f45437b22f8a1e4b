package orders

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewOrderNumber formats ORD-<unix millis>-<6 random base36 chars>, uppercased.
func NewOrderNumber(now time.Time) string {
	return strings.ToUpper("ORD-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomBase36(6))
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(buf)
}
