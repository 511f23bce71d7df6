package auth

import (
	"context"
	"time"

	"github.com/georgemunganga/printnow-backend/internal/pkg/principal"
)

// Service defines the interface for authentication-related business logic.
type Service interface {
	Login(ctx context.Context, email, password string) (*Token, error)
	// Verify checks a signed token and returns the principal it was issued to.
	Verify(token string) (principal.Principal, error)
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
