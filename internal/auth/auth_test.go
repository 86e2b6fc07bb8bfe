package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/memstore"
	"github.com/railmadad/backend/internal/models"
)

func TestIssueAndAuthenticate(t *testing.T) {
	m := NewTokenManager("secret", "railmadad", 7*24*time.Hour)
	token, exp, err := m.Issue(models.User{ID: "u1", Role: models.RoleWorker})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, time.Minute)

	p, err := m.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u1", Role: models.RoleWorker}, p)
}

func TestAuthenticateFailsClosed(t *testing.T) {
	m := NewTokenManager("secret", "railmadad", time.Hour)
	good, _, err := m.Issue(models.User{ID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	expired := NewTokenManager("secret", "railmadad", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, _ := expired.Issue(models.User{ID: "u1", Role: models.RoleAdmin})

	other := NewTokenManager("other-secret", "railmadad", time.Hour)
	forged, _, _ := other.Issue(models.User{ID: "u1", Role: models.RoleAdmin})

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1", Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "railmadad", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "u1", Role: "superuser",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "railmadad", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}).
		SignedString([]byte("secret"))

	for name, tok := range map[string]string{
		"empty":    "",
		"garbage":  "not.a.jwt",
		"expired":  old,
		"forged":   forged,
		"alg none": none,
		"bad role": badRole,
		"tampered": good[:len(good)-2] + "xx",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Authenticate(tok)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrUnauthenticated))
		})
	}
}

func TestAuthorizeHasNoHierarchy(t *testing.T) {
	admin := Principal{UserID: "a", Role: models.RoleAdmin}
	assert.True(t, Authorize(admin, models.RoleAdmin))
	assert.False(t, Authorize(admin, models.RoleWorker))
	assert.True(t, Authorize(Principal{UserID: "w", Role: models.RoleWorker}, models.RoleWorker, models.RoleAdmin))
	assert.False(t, Authorize(Principal{Role: models.RoleAdmin}, models.RoleAdmin))
}

type memChallenges struct {
	mu    sync.Mutex
	items map[string]Challenge
}

func (m *memChallenges) Put(ctx context.Context, phone string, c Challenge, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[phone] = c
	return nil
}

func (m *memChallenges) Get(ctx context.Context, phone string) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[phone]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memChallenges) Delete(ctx context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, phone)
	return nil
}

type failingSMS struct{ calls int }

func (f *failingSMS) SendSMS(ctx context.Context, to, body string) error {
	f.calls++
	return errors.New("twilio down")
}

func newOTPService() (*OTPService, *memstore.Store, *failingSMS) {
	users := memstore.New()
	sms := &failingSMS{}
	return &OTPService{
		Challenges:  &memChallenges{items: map[string]Challenge{}},
		Users:       users,
		SMS:         sms,
		Tokens:      NewTokenManager("secret", "railmadad", time.Hour),
		TTL:         10 * time.Minute,
		MaxAttempts: 3,
		ExposeCode:  true,
		Logger:      zerolog.Nop(),
	}, users, sms
}

func TestOTPLoginFlow(t *testing.T) {
	svc, users, sms := newOTPService()
	ctx := context.Background()

	sent, err := svc.Send(ctx, "98765 43210")
	require.NoError(t, err)
	assert.Equal(t, 1, sms.calls, "sms failure must not fail the send")
	assert.Len(t, sent.OTP, 6)

	res, err := svc.Verify(ctx, "9876543210", sent.OTP)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.User.IsVerified)
	assert.Equal(t, models.RoleUser, res.User.Role)

	p, err := svc.Tokens.Authenticate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, p.UserID)

	stored, err := users.GetUserByPhone(ctx, "9876543210")
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)

	_, err = svc.Verify(ctx, "9876543210", sent.OTP)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated, "code is single use")
}

func TestOTPWrongCodeLocksAfterMaxAttempts(t *testing.T) {
	svc, _, _ := newOTPService()
	ctx := context.Background()

	sent, err := svc.Send(ctx, "+919876543210")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := svc.Verify(ctx, "+919876543210", "000000x")
		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	}
	_, err = svc.Verify(ctx, "+919876543210", sent.OTP)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestOTPResendKeepsAttemptCount(t *testing.T) {
	svc, _, _ := newOTPService()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Send(ctx, "+919876543210")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := svc.Verify(ctx, "+919876543210", "000000x")
		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	}

	sent, err := svc.Send(ctx, "+919876543210")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, "+919876543210", "000000x")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = svc.Send(ctx, "+919876543210")
	assert.ErrorIs(t, err, apperrors.ErrTooManyAttempts)
	_, err = svc.Verify(ctx, "+919876543210", sent.OTP)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated, "locked challenge rejects even the right code")

	now = now.Add(11 * time.Minute)
	fresh, err := svc.Send(ctx, "+919876543210")
	require.NoError(t, err)
	_, err = svc.Verify(ctx, "+919876543210", fresh.OTP)
	require.NoError(t, err)
}

func TestOTPExposeCodeOnlyInDev(t *testing.T) {
	svc, _, _ := newOTPService()
	svc.ExposeCode = false
	sent, err := svc.Send(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Empty(t, sent.OTP)

	_, err = svc.Send(context.Background(), "12ab")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
