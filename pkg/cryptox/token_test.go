package cryptox_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/ledgerworks/stitchlink/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("carries the requested entropy", func(t *testing.T) {
		token, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, raw, cryptox.TokenSize256)
	})

	t.Run("output is URL-safe without padding", func(t *testing.T) {
		for range 50 {
			token, err := cryptox.GenerateToken(cryptox.TokenSize256)
			require.NoError(t, err)
			require.False(t, strings.ContainsAny(token, "=+/"), "token %q contains forbidden characters", token)
		}
	})

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := cryptox.GenerateToken(0)
		require.Error(t, err)

		_, err = cryptox.GenerateToken(-1)
		require.Error(t, err)
	})

	t.Run("successive tokens differ", func(t *testing.T) {
		a := cryptox.MustGenerateToken(cryptox.TokenSize256)
		b := cryptox.MustGenerateToken(cryptox.TokenSize256)
		require.NotEqual(t, a, b)
	})
}

func TestS256Challenge(t *testing.T) {
	t.Parallel()

	t.Run("deterministic", func(t *testing.T) {
		verifier := cryptox.MustGenerateToken(cryptox.TokenSize256)
		require.Equal(t, cryptox.S256Challenge(verifier), cryptox.S256Challenge(verifier))
	})

	t.Run("never equals the verifier", func(t *testing.T) {
		verifier := cryptox.MustGenerateToken(cryptox.TokenSize256)
		require.NotEqual(t, verifier, cryptox.S256Challenge(verifier))
	})

	t.Run("matches RFC 7636 appendix B vector", func(t *testing.T) {
		// Example verifier/challenge pair from the PKCE RFC.
		verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
		require.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", cryptox.S256Challenge(verifier))
	})

	t.Run("challenge is URL-safe without padding", func(t *testing.T) {
		challenge := cryptox.S256Challenge("any-verifier")
		require.False(t, strings.ContainsAny(challenge, "=+/"))
	})
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	require.Equal(t, cryptox.Fingerprint("tok"), cryptox.Fingerprint("tok"))
	require.NotEqual(t, cryptox.Fingerprint("tok"), cryptox.Fingerprint("tok2"))
	require.NotEqual(t, "tok", cryptox.Fingerprint("tok"))
}

func TestSealer(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		sealer, err := cryptox.NewSealer([]byte("unit-test-key"))
		require.NoError(t, err)

		sealed, err := sealer.Seal("access-token-value")
		require.NoError(t, err)
		require.NotEqual(t, "access-token-value", sealed)

		opened, err := sealer.Open(sealed)
		require.NoError(t, err)
		require.Equal(t, "access-token-value", opened)
	})

	t.Run("fresh nonce per seal", func(t *testing.T) {
		sealer, err := cryptox.NewSealer([]byte("unit-test-key"))
		require.NoError(t, err)

		a, err := sealer.Seal("same")
		require.NoError(t, err)
		b, err := sealer.Seal("same")
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("wrong key fails authentication", func(t *testing.T) {
		sealer, err := cryptox.NewSealer([]byte("key-one"))
		require.NoError(t, err)
		other, err := cryptox.NewSealer([]byte("key-two"))
		require.NoError(t, err)

		sealed, err := sealer.Seal("secret")
		require.NoError(t, err)

		_, err = other.Open(sealed)
		require.ErrorIs(t, err, cryptox.ErrSealedTokenInvalid)
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		sealer, err := cryptox.NewSealer([]byte("key"))
		require.NoError(t, err)

		_, err = sealer.Open("not base64 %%%")
		require.ErrorIs(t, err, cryptox.ErrSealedTokenInvalid)

		_, err = sealer.Open("c2hvcnQ") // decodes shorter than a nonce
		require.ErrorIs(t, err, cryptox.ErrSealedTokenInvalid)
	})

	t.Run("empty key material rejected", func(t *testing.T) {
		_, err := cryptox.NewSealer(nil)
		require.Error(t, err)
	})
}
