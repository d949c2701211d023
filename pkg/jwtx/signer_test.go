package jwtx_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ledgerworks/stitchlink/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "test-client-id"
	testAudience = "https://secure.stitch.money/connect/token"
)

func rsaPEM(t *testing.T) ([]byte, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), key
}

func TestAssertionSignerSignsVerifiableRS256(t *testing.T) {
	pemKey, key := rsaPEM(t)

	signer, err := jwtx.NewAssertionSigner(testClientID, pemKey)
	require.NoError(t, err)
	require.Equal(t, testClientID, signer.ClientID())

	now := time.Now().UTC().Truncate(time.Second)
	signed, err := signer.Sign(testAudience, now)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	var claims jwtx.AssertionClaims
	parsed, err := jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (any, error) {
		require.Equal(t, jwt.SigningMethodRS256.Alg(), token.Method.Alg())
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	require.Equal(t, testClientID, claims.Issuer)
	require.Equal(t, testClientID, claims.Subject)
	require.Equal(t, jwt.ClaimStrings{testAudience}, claims.Audience)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, now, claims.IssuedAt.Time)
	require.Equal(t, now, claims.NotBefore.Time)
	require.Equal(t, now.Add(jwtx.AssertionTTL), claims.ExpiresAt.Time)
}

func TestAssertionSignerNeverReusesAssertions(t *testing.T) {
	pemKey, key := rsaPEM(t)
	signer, err := jwtx.NewAssertionSigner(testClientID, pemKey)
	require.NoError(t, err)

	jti := func(signed string) string {
		var claims jwtx.AssertionClaims
		_, err := jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (any, error) {
			return &key.PublicKey, nil
		})
		require.NoError(t, err)
		return claims.ID
	}

	now := time.Now()
	first, err := signer.Sign(testAudience, now)
	require.NoError(t, err)
	second, err := signer.Sign(testAudience, now)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.NotEqual(t, jti(first), jti(second), "each assertion must carry a fresh jti")
}

func TestNewAssertionSignerAcceptsPKCS8(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	signer, err := jwtx.NewAssertionSigner(testClientID, pemKey)
	require.NoError(t, err)

	_, err = signer.Sign(testAudience, time.Now())
	require.NoError(t, err)
}

func TestNewAssertionSignerRejectsBadMaterial(t *testing.T) {
	t.Parallel()

	t.Run("garbage bytes", func(t *testing.T) {
		_, err := jwtx.NewAssertionSigner(testClientID, []byte("not a key"))
		require.ErrorIs(t, err, jwtx.ErrBadKey)
	})

	t.Run("non-RSA PKCS8 key", func(t *testing.T) {
		ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		der, err := x509.MarshalPKCS8PrivateKey(ec)
		require.NoError(t, err)
		pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

		_, err = jwtx.NewAssertionSigner(testClientID, pemKey)
		require.ErrorIs(t, err, jwtx.ErrBadKey)
	})

	t.Run("unsupported PEM type", func(t *testing.T) {
		pemKey := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1, 2, 3}})
		_, err := jwtx.NewAssertionSigner(testClientID, pemKey)
		require.ErrorIs(t, err, jwtx.ErrBadKey)
	})

	t.Run("empty client id", func(t *testing.T) {
		pemKey, _ := rsaPEM(t)
		_, err := jwtx.NewAssertionSigner("", pemKey)
		require.Error(t, err)
	})
}
