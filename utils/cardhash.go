package utils

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// CardHasher produces the salted digest stored on audit rows. Raw card
// identifiers only live on access_identities; everything written to the
// append-only log carries the hash instead.
type CardHasher struct {
	salt []byte
}

func NewCardHasher(salt string) *CardHasher {
	return &CardHasher{salt: []byte(salt)}
}

func (h *CardHasher) Hash(cardID string) string {
	if cardID == "" {
		return ""
	}
	buf := make([]byte, 0, len(h.salt)+len(cardID))
	buf = append(buf, h.salt...)
	buf = append(buf, cardID...)
	sum := sha3.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
