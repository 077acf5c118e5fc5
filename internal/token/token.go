// Package token issues and validates the signed bearer tokens used for
// authentication. Tokens are HS256 JWTs carrying the user's email as the
// subject plus a uid claim with the user's id.
package token

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrBadUserID    = errors.New("token user id claim is missing or malformed")
)

// Claims is the wire shape of an issued token. UID is declared as any because
// tokens minted by earlier deployments stored the id as a numeric string.
type Claims struct {
	jwt.RegisteredClaims
	UID any `json:"uid"`
}

// UserID coerces the uid claim to an int64 regardless of how it was encoded.
func (c *Claims) UserID() (int64, error) {
	switch v := c.UID.(type) {
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, ErrBadUserID
		}
		return id, nil
	default:
		return 0, ErrBadUserID
	}
}

// Service signs and verifies bearer tokens with a symmetric key.
type Service struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewService derives the signing key from secret and returns a Service whose
// tokens expire after ttl.
//
// The key is resolved in order: if secret decodes as base64 to at least 32
// bytes those bytes are used directly; otherwise the raw secret bytes are
// used, run through SHA-256 first when shorter than 32 bytes so the HMAC key
// always has full length.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		key: deriveKey(secret),
		ttl: ttl,
		now: time.Now,
	}
}

func deriveKey(secret string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) >= 32 {
		return decoded
	}
	raw := []byte(secret)
	if len(raw) >= 32 {
		return raw
	}
	sum := sha256.Sum256(raw)
	return sum[:]
}

// Issue creates a signed token for the given subject email and user id.
func (s *Service) Issue(subject string, userID int64) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UID: userID,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.key)
}

// Validate reports whether the token verifies, carries the expected subject
// and has not expired. Any decode or signature failure yields false.
func (s *Service) Validate(tokenString, expectedSubject string) bool {
	claims, err := s.parse(tokenString)
	if err != nil {
		return false
	}
	return claims.Subject == expectedSubject
}

// ExtractSubject returns the subject email from a verified token.
func (s *Service) ExtractSubject(tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractUserID returns the uid claim from a verified token.
func (s *Service) ExtractUserID(tokenString string) (int64, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return 0, err
	}
	return claims.UserID()
}

// parse verifies the signature and time claims, returning the claims only for
// a fully valid token.
func (s *Service) parse(tokenString string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(func() time.Time {
		return s.now()
	}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
