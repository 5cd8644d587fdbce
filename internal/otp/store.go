package otp

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"tubemindai/pkg/domain"
)

var (
	ErrSendRateLimited = errors.New("please wait before requesting another code")
	ErrCodeInvalid     = errors.New("incorrect verification code")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrCodeRequired    = errors.New("verification code is required")
	ErrTooManyAttempts = errors.New("too many verification attempts")
	ErrNoChallenge     = errors.New("no pending verification for this email")
	ErrResetToken      = errors.New("reset token is invalid or already used")
)

// Store keeps OTP challenges and password-reset tokens in Redis. Challenges
// are single-use, time-boxed, and attempt-limited; reset tokens are opaque,
// bound to one email, and consumed on first use.
type Store struct {
	client            *redis.Client
	keyPrefix         string
	challengeTTL      time.Duration
	challengePersist  time.Duration
	resendAfter       time.Duration
	resetTokenTTL     time.Duration
	maxVerifyAttempts int
}

type challenge struct {
	Email      string    `json:"email"`
	Purpose    string    `json:"purpose"`
	CodeHash   string    `json:"code_hash"`
	ExpiresAt  time.Time `json:"expires_at"`
	Attempts   int       `json:"attempts"`
	MaxAttempt int       `json:"max_attempt"`
}

// NewStore connects the challenge store to Redis.
func NewStore(addr, password string) (*Store, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("otp redis addr is required")
	}
	challengeTTL := 5 * time.Minute
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		keyPrefix:         "tubemind:auth:otp",
		challengeTTL:      challengeTTL,
		challengePersist:  challengeTTL + time.Minute,
		resendAfter:       30 * time.Second,
		resetTokenTTL:     15 * time.Minute,
		maxVerifyAttempts: 5,
	}, nil
}

// CreateChallenge issues a fresh numeric code for (email, purpose), replacing
// any previous one. Returns the plaintext code for delivery and its TTL.
func (s *Store) CreateChallenge(email string, purpose domain.OTPPurpose) (string, int, error) {
	email = normalizeEmail(email)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resendKey := s.resendKey(email, purpose)
	allowed, err := s.client.SetNX(ctx, resendKey, "1", s.resendAfter).Result()
	if err != nil {
		return "", 0, err
	}
	if !allowed {
		return "", 0, ErrSendRateLimited
	}

	code, err := generateNumericCode(6)
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", 0, fmt.Errorf("generate otp code: %w", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", 0, fmt.Errorf("hash otp code: %w", err)
	}
	raw, err := json.Marshal(challenge{
		Email:      email,
		Purpose:    string(purpose),
		CodeHash:   string(codeHash),
		ExpiresAt:  time.Now().UTC().Add(s.challengeTTL),
		Attempts:   0,
		MaxAttempt: s.maxVerifyAttempts,
	})
	if err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", 0, fmt.Errorf("marshal otp challenge: %w", err)
	}
	if err := s.client.Set(ctx, s.challengeKey(email, purpose), raw, s.challengePersist).Err(); err != nil {
		_ = s.client.Del(ctx, resendKey).Err()
		return "", 0, err
	}
	return code, int(s.challengeTTL.Seconds()), nil
}

// VerifyChallenge consumes the pending challenge when the code matches and is
// unexpired. Wrong codes burn an attempt; too many attempts void the
// challenge entirely.
func (s *Store) VerifyChallenge(email string, purpose domain.OTPPurpose, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeRequired
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := s.challengeKey(email, purpose)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNoChallenge
	}
	if err != nil {
		return err
	}
	var ch challenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return fmt.Errorf("unmarshal otp challenge: %w", err)
	}
	if time.Now().UTC().After(ch.ExpiresAt) {
		_ = s.client.Del(ctx, key).Err()
		return ErrCodeExpired
	}
	if ch.Attempts >= ch.MaxAttempt {
		_ = s.client.Del(ctx, key).Err()
		return ErrTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(code)) != nil {
		ch.Attempts++
		if ch.Attempts >= ch.MaxAttempt {
			_ = s.client.Del(ctx, key).Err()
		} else if updated, marshalErr := json.Marshal(ch); marshalErr == nil {
			if ttl, ttlErr := s.client.TTL(ctx, key).Result(); ttlErr == nil && ttl > 0 {
				_ = s.client.Set(ctx, key, updated, ttl).Err()
			}
		}
		return ErrCodeInvalid
	}
	return s.client.Del(ctx, key).Err()
}

// NewResetToken mints a single-use password-reset token bound to the email.
func (s *Store) NewResetToken(email string) (string, error) {
	email = normalizeEmail(email)
	token := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, s.resetKey(token), email, s.resetTokenTTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeResetToken validates ownership and burns the token atomically.
func (s *Store) ConsumeResetToken(email, token string) error {
	email = normalizeEmail(email)
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrResetToken
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	owner, err := s.client.GetDel(ctx, s.resetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrResetToken
	}
	if err != nil {
		return err
	}
	if owner != email {
		return ErrResetToken
	}
	return nil
}

func (s *Store) challengeKey(email string, purpose domain.OTPPurpose) string {
	return fmt.Sprintf("%s:challenge:%s:%s", s.keyPrefix, purpose, email)
}

func (s *Store) resendKey(email string, purpose domain.OTPPurpose) string {
	return fmt.Sprintf("%s:resend:%s:%s", s.keyPrefix, purpose, email)
}

func (s *Store) resetKey(token string) string {
	return fmt.Sprintf("%s:reset:%s", s.keyPrefix, token)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func generateNumericCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
