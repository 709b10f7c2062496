package state

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CollapseWhitespace canonicalizes runs of whitespace into single spaces and
// trims the ends, so equivalent renderings of a post hash identically.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Fingerprint returns the lowercase hex SHA-256 of the whitespace-collapsed
// text. Two outbound posts collide iff their normalized bodies are byte-equal.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(CollapseWhitespace(text)))
	return hex.EncodeToString(sum[:])
}
