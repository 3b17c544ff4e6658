// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any access token that does not verify.
var ErrInvalidToken = errors.New("invalid access token")

// Signer issues and verifies the EdDSA access tokens that carry a session
// token as their subject.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// ttl of issued tokens; zero means tokens never expire.
	ttl time.Duration
}

// NewSigner generates a fresh ed25519 key pair.
func NewSigner(ttl time.Duration) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv, publicKey: pub, ttl: ttl}, nil
}

// LoadSigner reads the key pair from privatePath and publicPath, or
// generates one when both are empty. Tokens from a generated pair do not
// survive a restart.
func LoadSigner(privatePath, publicPath string, ttl time.Duration) (*Signer, error) {
	if privatePath == "" && publicPath == "" {
		return NewSigner(ttl)
	}
	if privatePath == "" || publicPath == "" {
		return nil, fmt.Errorf("both key paths are needed, got %q and %q", privatePath, publicPath)
	}
	return NewSignerFromPath(privatePath, publicPath, ttl)
}

// NewSignerFromPath reads a raw ed25519 key pair from disk.
func NewSignerFromPath(privatePath, publicPath string, ttl time.Duration) (*Signer, error) {
	priv, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	pub, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize || len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("malformed ed25519 key files")
	}
	return &Signer{privateKey: ed25519.PrivateKey(priv), publicKey: ed25519.PublicKey(pub), ttl: ttl}, nil
}

// ParseTTL accepts a Go duration, or "", "0" and "never" for no expiry.
func ParseTTL(s string) (time.Duration, error) {
	switch s {
	case "", "0", "never":
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// Issue signs a token whose "sub" is sessionToken.
func (s *Signer) Issue(sessionToken string) (string, error) {
	claims := jwt.MapClaims{
		"sub": sessionToken,
		"iat": time.Now().Unix(),
	}
	if s.ttl > 0 {
		claims["exp"] = time.Now().Add(s.ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// Verify checks an access token and returns the session token it carries.
func (s *Signer) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("%w: missing", ErrInvalidToken)
	}
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", ErrInvalidToken
	}

	sub, err := t.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return sub, nil
}
