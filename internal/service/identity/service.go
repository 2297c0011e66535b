// Package identity resolves the current viewer to either an authenticated
// identity (from a bearer token minted by the external identity provider)
// or a durable anonymous device id.
package identity

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"komentar/internal/config"
	"komentar/internal/domain"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	jwt.RegisteredClaims
}

type Service interface {
	// Resolve yields the viewer identity for a request. The returned device
	// id is the one the client should persist; it equals the input when one
	// was supplied and is freshly minted otherwise.
	Resolve(authHeader, deviceID string) (domain.Identity, string)

	ValidateAccessToken(token string) (*Claims, error)
}

type service struct {
	cfg *config.Config
}

func NewService(cfg *config.Config) Service {
	return &service{cfg: cfg}
}

func (s *service) Resolve(authHeader, deviceID string) (domain.Identity, string) {
	if token, ok := bearerToken(authHeader); ok {
		claims, err := s.ValidateAccessToken(token)
		if err == nil {
			return domain.NewAuthenticated(claims.UserID, claims.DisplayName, claims.AvatarURL), deviceID
		}
		// A bad token downgrades to anonymous instead of failing the
		// request; reads are public and writes carry the weak identity.
	}

	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	return domain.NewAnonymous(deviceID), deviceID
}

func (s *service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func bearerToken(authHeader string) (string, bool) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
