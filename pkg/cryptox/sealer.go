package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts bearer credentials before they hit disk. The sqlite store
// driver wraps access and refresh tokens with one so a copied database file
// does not leak live banking credentials.
//
// Format: [24-byte nonce][ciphertext+tag], base64url-encoded as a whole.
type Sealer struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	}
}

// ErrSealedTokenInvalid reports ciphertext that is malformed or fails
// authentication (wrong key, truncated row, tampering).
var ErrSealedTokenInvalid = errors.New("cryptox: sealed token invalid")

// NewSealer derives a 32-byte XChaCha20-Poly1305 key from the supplied key
// material. Any non-empty passphrase or raw key works; it is hashed before
// use so length does not matter.
func NewSealer(keyMaterial []byte) (*Sealer, error) {
	if len(keyMaterial) == 0 {
		return nil, errors.New("cryptox: empty sealer key material")
	}

	key := sha256.Sum256(keyMaterial)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: init sealer: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Seal encrypts a token with a fresh random nonce.
func (s *Sealer) Seal(token string) (string, error) {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cryptox: seal nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(token), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrSealedTokenInvalid
	}
	if len(raw) < chacha20poly1305.NonceSizeX {
		return "", ErrSealedTokenInvalid
	}

	nonce, ciphertext := raw[:chacha20poly1305.NonceSizeX], raw[chacha20poly1305.NonceSizeX:]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrSealedTokenInvalid
	}

	return string(plain), nil
}
