package storage

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID generates a random 128-bit hex record identifier.
func NewID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("storage: rand.Read failed: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
