package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundtrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
	assert.False(t, CheckPassword("not a bcrypt hash", "anything"))
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("hunter22222")
	require.NoError(t, err)
	h2, err := HashPassword("hunter22222")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
