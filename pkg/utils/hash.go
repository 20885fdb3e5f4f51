package utils

import (
	"crypto/sha1"
	"encoding/hex"
)

// HashString returns the hex-encoded SHA1 digest of s, used to derive
// stable identifiers from source URLs and timestamps.
func HashString(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
