package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/crowdcast")
	t.Setenv("JWT_SECRET", "0123456789abcdef")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, VotePolicySingle, cfg.VotePolicy)
	assert.Equal(t, 50, cfg.MaxClientsPerRoom)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "0123456789abcdef")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/crowdcast")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_ShortJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/crowdcast")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 16 characters")
}

func TestLoad_InvalidVotePolicy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VOTE_POLICY", "ranked-choice")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VOTE_POLICY")
}

func TestLoad_MultiVotePolicy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("VOTE_POLICY", "multi")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, VotePolicyMulti, cfg.VotePolicy)
}
