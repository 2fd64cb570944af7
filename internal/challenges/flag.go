package challenges

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/zdi-academy/backend/internal/models"
)

const hashPlaceholder = "{hash}"

// DynamicFlag fills the first {hash} in format with the first 16 hex chars
// of sha256("<userID>-<challengeID>").
func DynamicFlag(format, userID, challengeID string) string {
	sum := sha256.Sum256([]byte(userID + "-" + challengeID))
	return strings.Replace(format, hashPlaceholder, hex.EncodeToString(sum[:])[:16], 1)
}

// ValidateFlag checks a submission. A static flag wins over a flag format.
// Both sides are trimmed; comparison is case-sensitive. A challenge with
// neither a flag nor a {hash} format accepts nothing.
func ValidateFlag(ch *models.Challenge, submitted, userID string) bool {
	submitted = strings.TrimSpace(submitted)

	if ch.Flag != nil && strings.TrimSpace(*ch.Flag) != "" {
		return flagsEqual(submitted, strings.TrimSpace(*ch.Flag))
	}
	if ch.FlagFormat != nil && strings.Contains(*ch.FlagFormat, hashPlaceholder) {
		expected := strings.TrimSpace(DynamicFlag(*ch.FlagFormat, userID, ch.ID))
		return flagsEqual(submitted, expected)
	}
	return false
}

func flagsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
