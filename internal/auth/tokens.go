package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/railmadad/backend/internal/apperrors"
	"github.com/railmadad/backend/internal/models"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID string
	Role   models.Role
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

type Claims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token for u valid for the configured TTL.
func (m *TokenManager) Issue(u models.User) (string, time.Time, error) {
	if !u.Role.Valid() {
		return "", time.Time{}, apperrors.Clone(apperrors.ErrValidation, "unknown role")
	}
	issuedAt := m.now().UTC()
	expiresAt := issuedAt.Add(m.ttl)
	claims := &Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Authenticate verifies the token and returns its principal. Any failure yields
// ErrUnauthenticated; there is no partially trusted result.
func (m *TokenManager) Authenticate(token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, apperrors.Clone(apperrors.ErrUnauthenticated, "missing token")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return Principal{}, apperrors.Wrap(err, apperrors.ErrUnauthenticated, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, apperrors.Clone(apperrors.ErrUnauthenticated, "invalid token claims")
	}
	if claims.UserID == "" || claims.UserID != claims.Subject || !claims.Role.Valid() {
		return Principal{}, apperrors.Wrap(errors.New("bad subject or role"), apperrors.ErrUnauthenticated, "invalid token claims")
	}
	return Principal{UserID: claims.UserID, Role: claims.Role}, nil
}

// Authorize reports whether p holds one of roles. Roles are flat: admin does not imply worker.
func Authorize(p Principal, roles ...models.Role) bool {
	if p.UserID == "" {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
