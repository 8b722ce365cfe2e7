// internal/utils/crypto.go
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

func HashString(input string) string {
	return HashBytes([]byte(input))
}

func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
