package challenges

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zdi-academy/backend/internal/models"
)

func strPtr(s string) *string { return &s }

func TestValidateFlagStatic(t *testing.T) {
	ch := &models.Challenge{ID: "c1", Flag: strPtr("ZDI{abc123}")}
	tests := []struct {
		submitted string
		want      bool
	}{
		{"ZDI{abc123}", true},
		{"  ZDI{abc123}\n", true},
		{"zdi{abc123}", false},
		{"ZDI{abc124}", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateFlag(ch, tt.submitted, "u1"); got != tt.want {
			t.Errorf("ValidateFlag(%q) = %v, want %v", tt.submitted, got, tt.want)
		}
	}
}

func TestValidateFlagStaticTrimsStoredFlag(t *testing.T) {
	ch := &models.Challenge{ID: "c1", Flag: strPtr(" ZDI{x} ")}
	assert.True(t, ValidateFlag(ch, "ZDI{x}", "u1"))
}

func TestValidateFlagDynamic(t *testing.T) {
	sum := sha256.Sum256([]byte("u1-c1"))
	want := "ZDI{" + hex.EncodeToString(sum[:])[:16] + "}"

	ch := &models.Challenge{ID: "c1", FlagFormat: strPtr("ZDI{{hash}}")}
	assert.Equal(t, want, DynamicFlag("ZDI{{hash}}", "u1", "c1"))
	assert.True(t, ValidateFlag(ch, want, "u1"))
	assert.True(t, ValidateFlag(ch, " "+want+" ", "u1"))
	assert.False(t, ValidateFlag(ch, want, "u2"), "flags are per user")
}

func TestValidateFlagStaticWinsOverFormat(t *testing.T) {
	ch := &models.Challenge{ID: "c1", Flag: strPtr("ZDI{static}"), FlagFormat: strPtr("ZDI{{hash}}")}
	assert.True(t, ValidateFlag(ch, "ZDI{static}", "u1"))
	assert.False(t, ValidateFlag(ch, DynamicFlag("ZDI{{hash}}", "u1", "c1"), "u1"))
}

func TestValidateFlagNotConfigured(t *testing.T) {
	assert.False(t, ValidateFlag(&models.Challenge{ID: "c1"}, "anything", "u1"))
	assert.False(t, ValidateFlag(&models.Challenge{ID: "c1", Flag: strPtr("")}, "", "u1"))
	assert.False(t, ValidateFlag(&models.Challenge{ID: "c1", FlagFormat: strPtr("ZDI{fixed}")}, "ZDI{fixed}", "u1"))
}
