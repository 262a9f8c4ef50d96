package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordNeverStoresPlaintext(t *testing.T) {
	hash, err := HashPassword("p@55w0rd")
	require.NoError(t, err)

	assert.NotEqual(t, "p@55w0rd", hash)
	assert.NotContains(t, hash, "p@55w0rd")
	assert.Contains(t, hash, "$argon2id$v=19$m=19456,t=2,p=1$")

	ok, err := CheckPassword("p@55w0rd", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("same")
	require.NoError(t, err)
	second, err := HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCheckPasswordRejectsWrongPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	ok, err := CheckPassword("battery staple", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckPasswordAcceptsBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := CheckPassword("legacy-secret", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword("nope", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, NeedsRehash(string(legacy)))
}

func TestCheckPasswordUnknownScheme(t *testing.T) {
	_, err := CheckPassword("x", "5f4dcc3b5aa765d61d8327deb882cf99")
	assert.ErrorIs(t, err, ErrUnsupportedHash)
}

func TestNeedsRehash(t *testing.T) {
	current, err := HashPassword("pw")
	require.NoError(t, err)
	assert.False(t, NeedsRehash(current))

	assert.True(t, NeedsRehash("$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"))
	assert.True(t, NeedsRehash("garbage"))
}
