package store

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"tubemindai/internal/util"
)

const (
	defaultJWTIssuer   = "tubemind-api"
	defaultJWTAudience = "tubemind-client"
)

var defaultJWTLeeway = 30 * time.Second

// ErrInvalidSession is returned for malformed, expired, or revoked tokens.
var ErrInvalidSession = errors.New("invalid session token")

// JWTOptions configures claim validation behavior.
type JWTOptions struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// JWTSessionStore issues and validates HS256 bearer tokens. User-level
// revocation (logout-all, admin deactivation) is delegated to the revoker:
// tokens issued before the user's revocation cutoff are rejected.
type JWTSessionStore struct {
	secret   []byte
	ttl      time.Duration
	revoker  SessionRevoker
	issuer   string
	audience string
	leeway   time.Duration
}

// SessionRevoker tracks per-user revocation cutoffs.
type SessionRevoker interface {
	RevokeUser(userID uint, since time.Time, ttl time.Duration) error
	RevokedSince(userID uint) (time.Time, bool, error)
}

// NewJWTSessionStore builds a session store from a shared secret.
func NewJWTSessionStore(secret string, ttl time.Duration, revoker SessionRevoker, opts JWTOptions) (*JWTSessionStore, error) {
	if secret == "" {
		return nil, errors.New("jwt secret required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	issuer := opts.Issuer
	if issuer == "" {
		issuer = defaultJWTIssuer
	}
	audience := opts.Audience
	if audience == "" {
		audience = defaultJWTAudience
	}
	leeway := opts.Leeway
	if leeway <= 0 {
		leeway = defaultJWTLeeway
	}
	return &JWTSessionStore{
		secret:   []byte(secret),
		ttl:      ttl,
		revoker:  revoker,
		issuer:   issuer,
		audience: audience,
		leeway:   leeway,
	}, nil
}

// NewSession issues a signed bearer token for the user.
func (s *JWTSessionStore) NewSession(userID uint) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        util.NewID(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// UserIDFromToken validates a bearer token and returns the user it belongs
// to. The boolean is false for any invalid, expired, or revoked token.
func (s *JWTSessionStore) UserIDFromToken(token string) (uint, bool, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return 0, false, nil
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" || claims.IssuedAt == nil {
		return 0, false, nil
	}
	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, false, nil
	}
	if s.revoker != nil {
		cutoff, revoked, err := s.revoker.RevokedSince(uint(userID))
		if err != nil {
			return 0, false, err
		}
		if revoked && !claims.IssuedAt.Time.After(cutoff) {
			return 0, false, nil
		}
	}
	return uint(userID), true, nil
}

// RevokeUserSessions invalidates every token issued to the user at or before
// the cutoff.
func (s *JWTSessionStore) RevokeUserSessions(userID uint, since time.Time) error {
	if s.revoker == nil {
		return nil
	}
	return s.revoker.RevokeUser(userID, since, s.ttl+s.leeway)
}
