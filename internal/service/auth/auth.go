// Package auth issues and verifies the JWTs that authenticate purchase and
// admin requests. Grounded on bobmcallan-vire's signJWT/validateJWT, using
// the same HMAC-SHA256 MapClaims shape, adapted to this service's
// User/Role model and a login-by-email flow that creates users on first
// sight rather than an OAuth exchange.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"flashsale/internal/apperr"
	"flashsale/internal/domain"
)

// UserStore is the subset of the user repository auth needs.
type UserStore interface {
	GetOrCreateByEmail(ctx context.Context, userID, email string) (domain.User, error)
	GetByID(ctx context.Context, userID string) (domain.User, error)
}

type Service struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
}

func New(users UserStore, secret string, ttl time.Duration) *Service {
	return &Service{users: users, secret: []byte(secret), ttl: ttl}
}

// Login finds or creates a User for email and returns a signed token.
func (s *Service) Login(ctx context.Context, email string) (string, domain.User, error) {
	user, err := s.users.GetOrCreateByEmail(ctx, uuid.NewString(), email)
	if err != nil {
		return "", domain.User{}, apperr.Transient(err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.UserID,
		"role": string(user.Role),
		"iss":  "flashsale",
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", domain.User{}, apperr.Fatal(err)
	}
	return signed, user, nil
}

// Claims is the decoded identity carried by a verified token.
type Claims struct {
	UserID string
	Role   domain.Role
}

// Verify parses and validates tokenString, returning the caller's identity.
func (s *Service) Verify(ctx context.Context, tokenString string) (Claims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, apperr.New(apperr.KindAuthorization, apperr.ErrInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return Claims{}, apperr.New(apperr.KindAuthorization, apperr.ErrInvalidToken)
	}
	return Claims{UserID: sub, Role: domain.Role(role)}, nil
}

// RequireAdmin returns apperr.ErrForbidden unless claims belong to an admin.
func RequireAdmin(claims Claims) error {
	if claims.Role != domain.RoleAdmin {
		return apperr.New(apperr.KindAuthorization, apperr.ErrForbidden)
	}
	return nil
}
