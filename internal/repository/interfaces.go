package repository

import (
	"context"
	"time"

	"github.com/Anan1218/homehealth/internal/domain"
)

// SessionCache keeps short-lived, token-keyed state next to the BaaS.
// A miss is reported as a nil identity and a nil error.
type SessionCache interface {
	GetUser(ctx context.Context, accessToken string) (*domain.Identity, error)
	SaveUser(ctx context.Context, accessToken string, user domain.Identity, ttl time.Duration) error
	// Revoke marks accessToken revoked for ttl and drops every cached profile
	// of userID. An empty userID only affects accessToken.
	Revoke(ctx context.Context, accessToken, userID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, accessToken string) (bool, error)
}
