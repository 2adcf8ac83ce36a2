package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"os"
)

var ErrNotFound = errors.New("not found")

func Env(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// RandomHex returns 2*n hex characters read from crypto/rand.
func RandomHex(n int) string {
	if n <= 0 {
		n = 12
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
