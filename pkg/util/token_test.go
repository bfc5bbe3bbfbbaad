package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token1, err := GenerateToken()
	require.NoError(t, err)
	assert.Len(t, token1, TokenLength*2) // hex encoded

	token2, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token1, token2)
}

func TestHashToken(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	hash := HashToken(token)
	assert.Len(t, hash, 64) // sha256 hex digest
	assert.NotEqual(t, token, hash)

	// Deterministic: same input, same digest
	assert.Equal(t, hash, HashToken(token))
	assert.NotEqual(t, hash, HashToken(token+"x"))
}
