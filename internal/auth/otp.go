package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/db"
	"github.com/railmadad/backend/internal/models"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// Challenge is a pending one-time code. Only the bcrypt hash is stored.
type Challenge struct {
	CodeHash  string    `json:"code_hash"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ChallengeStore interface {
	Put(ctx context.Context, phone string, c Challenge, ttl time.Duration) error
	Get(ctx context.Context, phone string) (*Challenge, error)
	Delete(ctx context.Context, phone string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

type UserStore interface {
	GetUserByPhone(ctx context.Context, phone string) (models.User, error)
	CreateUser(ctx context.Context, u models.User) error
	UpdateUser(ctx context.Context, u models.User) error
}

type OTPService struct {
	Challenges  ChallengeStore
	Users       UserStore
	SMS         SMSSender
	Tokens      *TokenManager
	TTL         time.Duration
	MaxAttempts int
	// ExposeCode echoes the code in the send response. Only enabled in dev.
	ExposeCode bool
	Logger     zerolog.Logger

	now func() time.Time
}

type SendResult struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
	OTP         string `json:"otp,omitempty"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

func (s *OTPService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func NormalizePhone(raw string) (string, error) {
	phone := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	if !phonePattern.MatchString(phone) {
		return "", apperrors.Clone(apperrors.ErrValidation, "valid phone number is required")
	}
	return phone, nil
}

// Send creates the user on first contact, stores a hashed code and texts it.
// A resend keeps the failed attempt count of the live challenge it replaces.
// SMS delivery failures are logged and do not fail the call.
func (s *OTPService) Send(ctx context.Context, rawPhone string) (SendResult, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return SendResult{}, err
	}

	attempts := 0
	prev, err := s.Challenges.Get(ctx, phone)
	if err != nil {
		return SendResult{}, apperrors.Wrap(err, apperrors.ErrInternal, "failed to load code")
	}
	if prev != nil && s.clock().Before(prev.ExpiresAt) {
		if prev.Attempts >= s.maxAttempts() {
			return SendResult{}, apperrors.Clone(apperrors.ErrTooManyAttempts, "too many failed attempts, try again later")
		}
		attempts = prev.Attempts
	}

	if _, err := s.Users.GetUserByPhone(ctx, phone); err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return SendResult{}, apperrors.Wrap(err, apperrors.ErrInternal, "failed to load user")
		}
		u := models.User{ID: uuid.NewString(), PhoneNumber: phone, Role: models.RoleUser, Available: true, CreatedAt: s.clock().UTC()}
		if err := s.Users.CreateUser(ctx, u); err != nil && !errors.Is(err, db.ErrDuplicate) {
			return SendResult{}, apperrors.Wrap(err, apperrors.ErrInternal, "failed to create user")
		}
	}

	code, err := generateCode()
	if err != nil {
		return SendResult{}, apperrors.Wrap(err, apperrors.ErrInternal, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return SendResult{}, apperrors.Wrap(err, apperrors.ErrInternal, "failed to hash code")
	}
	challenge := Challenge{CodeHash: string(hash), Attempts: attempts, ExpiresAt: s.clock().Add(s.TTL)}
	if err := s.Challenges.Put(ctx, phone, challenge, s.TTL); err != nil {
		return SendResult{}, apperrors.Wrap(err, apperrors.ErrInternal, "failed to store code")
	}

	if s.SMS != nil {
		body := fmt.Sprintf("Your RailMadad verification code is %s. It expires in %d minutes.", code, int(s.TTL.Minutes()))
		if err := s.SMS.SendSMS(ctx, phone, body); err != nil {
			s.Logger.Error().Err(err).Str("phone", maskPhone(phone)).Msg("otp sms delivery failed")
		}
	}

	res := SendResult{PhoneNumber: phone, Message: "Verification code sent successfully"}
	if s.ExposeCode {
		res.OTP = code
	}
	return res, nil
}

// Verify checks the code, consumes the challenge and issues a bearer token.
func (s *OTPService) Verify(ctx context.Context, rawPhone, code string) (LoginResult, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return LoginResult{}, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return LoginResult{}, apperrors.Clone(apperrors.ErrValidation, "verification code is required")
	}

	ch, err := s.Challenges.Get(ctx, phone)
	if err != nil {
		return LoginResult{}, apperrors.Wrap(err, apperrors.ErrInternal, "failed to load code")
	}
	if ch == nil || !s.clock().Before(ch.ExpiresAt) || ch.Attempts >= s.maxAttempts() {
		return LoginResult{}, apperrors.Clone(apperrors.ErrUnauthenticated, "invalid or expired verification code")
	}
	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(code)) != nil {
		// An exhausted challenge stays until it expires so a resend cannot reset the count.
		ch.Attempts++
		if remaining := ch.ExpiresAt.Sub(s.clock()); remaining > 0 {
			_ = s.Challenges.Put(ctx, phone, *ch, remaining)
		}
		return LoginResult{}, apperrors.Clone(apperrors.ErrUnauthenticated, "invalid or expired verification code")
	}
	if err := s.Challenges.Delete(ctx, phone); err != nil {
		s.Logger.Warn().Err(err).Msg("failed to delete otp challenge")
	}

	u, err := s.Users.GetUserByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return LoginResult{}, apperrors.Clone(apperrors.ErrUnauthenticated, "user not found")
		}
		return LoginResult{}, apperrors.Wrap(err, apperrors.ErrInternal, "failed to load user")
	}
	now := s.clock().UTC()
	u.IsVerified = true
	u.LastLogin = &now
	u.LastActive = &now
	if err := s.Users.UpdateUser(ctx, u); err != nil {
		return LoginResult{}, apperrors.Wrap(err, apperrors.ErrInternal, "failed to update user")
	}

	token, exp, err := s.Tokens.Issue(u)
	if err != nil {
		return LoginResult{}, apperrors.Wrap(err, apperrors.ErrInternal, "failed to issue token")
	}
	return LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *OTPService) maxAttempts() int {
	if s.MaxAttempts <= 0 {
		return 5
	}
	return s.MaxAttempts
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func maskPhone(p string) string {
	if len(p) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}
