package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderCode(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	code := GenerateOrderCode(now)
	parts := strings.Split(code, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "ORD", parts[0])
	assert.Equal(t, "20260825", parts[1])
	assert.Len(t, parts[2], 6)

	for _, c := range parts[2] {
		assert.Contains(t, orderCodeAlphabet, string(c), "suffix must avoid ambiguous characters")
	}
}

func TestGenerateOrderCodeIsRandom(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[GenerateOrderCode(now)] = true
	}
	assert.Greater(t, len(seen), 90, "codes from the same instant must differ")
}

func TestParseStringToUUID(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, ParseStringToUUID(id.String()))
	assert.Equal(t, uuid.Nil, ParseStringToUUID(""))
	assert.Equal(t, uuid.Nil, ParseStringToUUID("not-a-uuid"))
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID(uuid.New().String()))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("too-short"))
	assert.False(t, IsValidUUID(strings.Repeat("a", 36)))
}
