package services

import (
	"testing"

	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownUserHashCostsLikeARealOne(t *testing.T) {
	assert.False(t, auth.NeedsRehash(unknownUserHash))

	ok, err := auth.CheckPassword("secret-password", unknownUserHash)
	require.NoError(t, err)
	assert.False(t, ok)
}
