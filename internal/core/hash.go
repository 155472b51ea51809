package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// QueryHash returns the deterministic identity hash of a normalized
// query. Two queries with the same normalized text always map to the
// same hash.
func QueryHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ContentHash returns a short fingerprint used for near-duplicate
// detection of fetched content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:8])
}
