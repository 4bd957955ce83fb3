package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/invoicer/internal/config"
	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/golang-jwt/jwt/v4"
)

// Claims identifies the caller of an authenticated request. UserID is the
// tenant every query is scoped to.
type Claims struct {
	UserID string
	Email  string
	Name   string
}

// Provider validates bearer tokens issued by the identity service
type Provider interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
	GenerateToken(claims Claims, ttl time.Duration) (string, error)
}

type jwtAuth struct {
	secret []byte
}

func NewProvider(cfg *config.Configuration) Provider {
	return &jwtAuth{secret: []byte(cfg.Auth.Secret)}
}

func (a *jwtAuth) ValidateToken(_ context.Context, token string) (*Claims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHint(fmt.Sprintf("unexpected signing method: %v", token.Header["alg"])).
				Mark(ierr.ErrUnauthenticated)
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid or expired token").
			Mark(ierr.ErrUnauthenticated)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token claims").
			Mark(ierr.ErrUnauthenticated)
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Token missing user ID").
			Mark(ierr.ErrUnauthenticated)
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	return &Claims{UserID: userID, Email: email, Name: name}, nil
}

// GenerateToken signs an HS256 token for claims. Used by tests and local
// tooling; production tokens come from the identity service.
func (a *jwtAuth) GenerateToken(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	mapClaims := jwt.MapClaims{
		"user_id": claims.UserID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	if claims.Email != "" {
		mapClaims["email"] = claims.Email
	}
	if claims.Name != "" {
		mapClaims["name"] = claims.Name
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	return token.SignedString(a.secret)
}
