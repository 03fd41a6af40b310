package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const (
	numericIDLength = 18
	tagLength       = 4
	tagAlphabet     = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// NewNumericID returns a best-effort unique identifier made of digits only.
// Users, servers and channels are addressed by these ids, and mention tokens
// only match digits.
func NewNumericID() string {
	buf := make([]byte, numericIDLength)
	// leading digit is never zero so ids keep their length when parsed as numbers
	buf[0] = randomFrom("123456789")
	for i := 1; i < len(buf); i++ {
		buf[i] = randomFrom("0123456789")
	}
	if buf[0] == 0 {
		// Fallback to timestamp if crypto/rand is unavailable.
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return string(buf)
}

// NewTag returns a short discriminator shown next to a username.
func NewTag() string {
	buf := make([]byte, tagLength)
	for i := range buf {
		buf[i] = randomFrom(tagAlphabet)
		if buf[i] == 0 {
			return strconv.FormatInt(time.Now().UnixNano()%10000, 10)
		}
	}
	return string(buf)
}

func randomFrom(alphabet string) byte {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0
	}
	return alphabet[n.Int64()]
}
