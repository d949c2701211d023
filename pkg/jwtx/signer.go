package jwtx

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrBadKey reports private key material that could not be parsed or is
	// not an RSA key. This is a configuration fault, not a runtime one.
	ErrBadKey = errors.New("jwtx: bad private key material")
)

// AssertionSigner signs client assertions with RS256 using the integrator's
// certificate private key. It is safe for concurrent use.
type AssertionSigner struct {
	clientID string
	key      *rsa.PrivateKey
}

// NewAssertionSigner loads an RSA private key from PEM bytes. Both PKCS1
// ("RSA PRIVATE KEY") and PKCS8 ("PRIVATE KEY") blocks are accepted because
// provider-issued certificates show up in either form.
func NewAssertionSigner(clientID string, pemKey []byte) (*AssertionSigner, error) {
	if clientID == "" {
		return nil, errors.New("jwtx: empty client id")
	}

	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrBadKey)
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		parsed, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS1: %v", ErrBadKey, err)
		}
		key = parsed
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse PKCS8: %v", ErrBadKey, err)
		}
		rk, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key", ErrBadKey)
		}
		key = rk
	default:
		return nil, fmt.Errorf("%w: unsupported PEM type %q", ErrBadKey, block.Type)
	}

	return &AssertionSigner{clientID: clientID, key: key}, nil
}

// ClientID returns the client id the signer asserts.
func (s *AssertionSigner) ClientID() string { return s.clientID }

// Sign mints a fresh assertion for the given token endpoint. The audience is
// passed per call rather than held on the signer so one key can serve
// multiple provider environments.
func (s *AssertionSigner) Sign(audience string, now time.Time) (string, error) {
	claims := NewAssertionClaims(s.clientID, audience, now)
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign assertion: %w", err)
	}
	return signed, nil
}
