package cache

import (
	"context"
	"time"

	"github.com/Anan1218/homehealth/internal/domain"
	"github.com/Anan1218/homehealth/internal/repository"
)

// NoopSessionCache is used when Redis is not configured. Every lookup misses.
type NoopSessionCache struct{}

var _ repository.SessionCache = NoopSessionCache{}

func (NoopSessionCache) GetUser(context.Context, string) (*domain.Identity, error) { return nil, nil }

func (NoopSessionCache) SaveUser(context.Context, string, domain.Identity, time.Duration) error {
	return nil
}

func (NoopSessionCache) Revoke(context.Context, string, string, time.Duration) error { return nil }

func (NoopSessionCache) IsRevoked(context.Context, string) (bool, error) { return false, nil }
