// Package randx produces random values for one-time secrets such as the
// OAuth state parameter.
package randx

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString reads size random bytes and returns them hex encoded, so
// the result is 2*size characters long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
