package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "file:db.sqlite", cfg.DatabaseURL)
	assert.Equal(t, 50, cfg.GuestLinkLimit)
	assert.Equal(t, 7, cfg.CodeLength)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DATABASE_URL", "memory")
	t.Setenv("GUEST_LINK_LIMIT", "5")
	t.Setenv("CODE_LENGTH", "10")

	cfg := Load()

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "memory", cfg.DatabaseURL)
	assert.Equal(t, 5, cfg.GuestLinkLimit)
	assert.Equal(t, 10, cfg.CodeLength)
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("GUEST_LINK_LIMIT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 50, cfg.GuestLinkLimit)
}
