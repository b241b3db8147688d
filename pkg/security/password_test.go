package security_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher := security.NewHasher(testPasswordConfig())

	hash, err := hasher.Hash("very-secure-password")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$m=8192,t=1,p=1$")

	ok, err := hasher.Verify("very-secure-password", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("bogus-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashRejectsShortPasswords(t *testing.T) {
	_, err := security.NewHasher(testPasswordConfig()).Hash("12345")
	assert.Error(t, err)
}

func TestVerifyBadHash(t *testing.T) {
	hasher := security.NewHasher(testPasswordConfig())
	for _, encoded := range []string{"not-a-hash", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5"} {
		_, err := hasher.Verify("irrelevant", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := security.NewHasher(testPasswordConfig())
	hash, err := weak.Hash("password-one")
	require.NoError(t, err)
	assert.False(t, weak.NeedsRehash(hash))

	stronger := testPasswordConfig()
	stronger.ArgonTime = 2
	assert.True(t, security.NewHasher(stronger).NeedsRehash(hash))
	assert.True(t, weak.NeedsRehash("garbage"))
}
