package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateCode returns an uppercase hex string built from n random bytes.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// NewSessionID mints an identifier for occupancy and attendance
// sessions. Session ids only need uniqueness within a facility's
// active-session set, 8 random bytes is plenty.
func NewSessionID() (string, error) {
	return GenerateCode(8)
}
