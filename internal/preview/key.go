// Package preview implements the draft preview flow: signed preview keys,
// the draft cookie, and the Live/PreviewRequested/PreviewActive transitions.
package preview

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	subjectPreview = "preview"
	subjectDraft   = "draft"

	// DefaultKeyTTL is how long a generated preview key stays valid.
	DefaultKeyTTL = time.Hour
	// DraftTTL is the lifetime of the draft cookie.
	DraftTTL = 24 * time.Hour
)

var (
	errNoSecret       = errors.New("preview signing secret is not configured")
	errEmptyToken     = errors.New("token is required")
	errExpired        = errors.New("token is expired")
	errMissingExpiry  = errors.New("token has no expiry")
	errWrongSubject   = errors.New("token subject mismatch")
	errBadSignature   = errors.New("token signature is invalid")
	errMalformedToken = errors.New("token is malformed")
)

type keyClaims struct {
	jwt.RegisteredClaims
}

// KeyManager signs and verifies preview keys and draft cookies with the
// site security key.
type KeyManager struct {
	secret []byte
	ttl    time.Duration
}

// NewKeyManager creates a key manager. A non-positive ttl uses
// DefaultKeyTTL. An empty secret is accepted but every Generate and
// Validate call fails.
func NewKeyManager(secret string, ttl time.Duration) *KeyManager {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &KeyManager{secret: []byte(secret), ttl: ttl}
}

// TTL returns the preview key lifetime.
func (k *KeyManager) TTL() time.Duration {
	return k.ttl
}

// Generate returns a preview key valid from now for the configured TTL.
func (k *KeyManager) Generate(now time.Time) (string, error) {
	return k.sign(subjectPreview, now, k.ttl)
}

// Validate checks the signature and expiry of a preview key.
func (k *KeyManager) Validate(key string, now time.Time) error {
	return k.verify(key, subjectPreview, now)
}

// IssueDraft returns the signed value stored in the draft cookie.
func (k *KeyManager) IssueDraft(now time.Time) (string, error) {
	return k.sign(subjectDraft, now, DraftTTL)
}

// VerifyDraft checks a draft cookie value.
func (k *KeyManager) VerifyDraft(value string, now time.Time) error {
	return k.verify(value, subjectDraft, now)
}

func (k *KeyManager) sign(subject string, now time.Time, ttl time.Duration) (string, error) {
	if len(k.secret) == 0 {
		return "", errNoSecret
	}
	now = now.UTC()
	claims := keyClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", subject, err)
	}
	return signed, nil
}

func (k *KeyManager) verify(token, subject string, now time.Time) error {
	if len(k.secret) == 0 {
		return errNoSecret
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return errEmptyToken
	}

	var parsed keyClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return k.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return mapJWTError(err)
	}

	if parsed.Subject != subject {
		return errWrongSubject
	}
	if parsed.ExpiresAt == nil {
		return errMissingExpiry
	}
	if !parsed.ExpiresAt.Time.After(now.UTC()) {
		return errExpired
	}
	return nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errBadSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errMalformedToken
	default:
		return fmt.Errorf("parse token: %w", err)
	}
}
