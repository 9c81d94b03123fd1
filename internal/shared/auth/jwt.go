package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultTokenTTL = 24 * time.Hour
	clockLeeway     = time.Minute
	tokenIssuer     = "docanalyzer"
	devSecret       = "dev-secret"
)

// Claims is the identity carried by a bearer token.
type Claims struct {
	Sub     string `json:"sub"`
	Iss     string `json:"iss,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Exp     int64  `json:"exp,omitempty"`
	Iat     int64  `json:"iat,omitempty"`
}

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// The header is fixed, so it is encoded once and compared byte for byte on
// verify. Tokens with any other algorithm never reach signature checking.
var encodedHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

// Signer issues and verifies HS256 tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// SignerOption customizes a Signer.
type SignerOption func(*Signer)

// WithTTL sets the lifetime of issued tokens.
func WithTTL(ttl time.Duration) SignerOption {
	return func(s *Signer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner builds a Signer. Production environments must provide a secret;
// other environments fall back to a development secret.
func NewSigner(secret, env string, opts ...SignerOption) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	env = strings.ToLower(strings.TrimSpace(env))
	if secret == "" {
		if env == "production" || env == "prod" {
			return nil, fmt.Errorf("%w: JWT_SECRET required in production", ErrMissingSecret)
		}
		secret = devSecret
	}
	s := &Signer{secret: []byte(secret), ttl: defaultTokenTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign issues a token for claims, filling in iss, iat and exp when unset.
func (s *Signer) Sign(claims Claims) (string, error) {
	if claims.Sub == "" {
		return "", errors.New("sub is required")
	}

	now := s.now().UTC()
	if claims.Iss == "" {
		claims.Iss = tokenIssuer
	}
	if claims.Iat == 0 {
		claims.Iat = now.Unix()
	}
	if claims.Exp == 0 {
		claims.Exp = now.Add(s.ttl).Unix()
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}
	signingInput := encodedHeader + "." + base64.RawURLEncoding.EncodeToString(payload)
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(s.mac(signingInput)), nil
}

// Verify checks the signature, issuer and validity window of a token.
func (s *Signer) Verify(token string) (Claims, error) {
	header, rest, ok := strings.Cut(token, ".")
	if !ok || header != encodedHeader {
		return Claims{}, ErrInvalidToken
	}
	payload, sig, ok := strings.Cut(rest, ".")
	if !ok || strings.Contains(sig, ".") {
		return Claims{}, ErrInvalidToken
	}

	gotMAC, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(gotMAC, s.mac(header+"."+payload)) {
		return Claims{}, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.Sub == "" || claims.Iss != tokenIssuer {
		return Claims{}, ErrInvalidToken
	}

	now := s.now().UTC()
	if claims.Exp > 0 && now.After(time.Unix(claims.Exp, 0).Add(clockLeeway)) {
		return Claims{}, ErrInvalidToken
	}
	if claims.Iat > 0 && time.Unix(claims.Iat, 0).After(now.Add(clockLeeway)) {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (s *Signer) mac(input string) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(input))
	return m.Sum(nil)
}
