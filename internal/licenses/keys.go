package licenses

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// keyAlphabet skips visually ambiguous characters (no O/0/I/1/L) so keys
// survive being read over the phone or typed from a printout.
const keyAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	keyGroups    = 4
	keyGroupSize = 4
)

// NormalizeKey trims and uppercases a license key for lookup. Keys are stored
// canonically uppercase.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// GenerateKey produces a license key of the form PREFIX-XXXX-XXXX-XXXX-XXXX
// from a cryptographically secure source. Sixteen symbols over a 31-character
// alphabet is roughly 79 bits of entropy; the database unique constraint on
// license_key remains the authoritative collision guard.
func GenerateKey(prefix string) (string, error) {
	buf := make([]byte, keyGroups*keyGroupSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}

	groups := make([]string, 0, keyGroups+1)
	groups = append(groups, prefix)
	for g := 0; g < keyGroups; g++ {
		var group strings.Builder
		for i := 0; i < keyGroupSize; i++ {
			b := buf[g*keyGroupSize+i]
			group.WriteByte(keyAlphabet[int(b)%len(keyAlphabet)])
		}
		groups = append(groups, group.String())
	}
	return strings.Join(groups, "-"), nil
}
