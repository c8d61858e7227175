package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/Anan1218/homehealth/internal/domain"
	"github.com/Anan1218/homehealth/internal/repository"
)

const (
	userKeyPrefix    = "homehealth:session:user:"
	revokedKeyPrefix = "homehealth:session:revoked:"
	indexKeyPrefix   = "homehealth:session:index:"

	// The index only lists digests to delete, so stale members are harmless.
	indexTTL = 24 * time.Hour
)

// RedisSessionCache implements SessionCache backed by Redis.
type RedisSessionCache struct {
	client redis.UniversalClient
}

var _ repository.SessionCache = (*RedisSessionCache)(nil)

type userRecord struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	Role         string         `json:"role,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at,omitempty"`
}

// NewRedisSessionCache constructs a Redis-backed session cache.
func NewRedisSessionCache(client redis.UniversalClient) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

// GetUser loads the cached identity for the token.
func (s *RedisSessionCache) GetUser(ctx context.Context, accessToken string) (*domain.Identity, error) {
	payload, err := s.client.Get(ctx, userKeyPrefix+TokenDigest(accessToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cached user: %w", err)
	}
	var record userRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}
	return &domain.Identity{
		ID:           record.ID,
		Email:        record.Email,
		Phone:        record.Phone,
		Role:         record.Role,
		UserMetadata: record.UserMetadata,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}, nil
}

// SaveUser stores the identity for ttl. A non-positive ttl is a no-op.
func (s *RedisSessionCache) SaveUser(ctx context.Context, accessToken string, user domain.Identity, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(userRecord{
		ID:           user.ID,
		Email:        user.Email,
		Phone:        user.Phone,
		Role:         user.Role,
		UserMetadata: user.UserMetadata,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal cached user: %w", err)
	}
	digest := TokenDigest(accessToken)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, userKeyPrefix+digest, payload, ttl)
	if user.ID != "" {
		pipe.SAdd(ctx, indexKeyPrefix+user.ID, digest)
		pipe.Expire(ctx, indexKeyPrefix+user.ID, indexTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("persist cached user: %w", err)
	}
	return nil
}

// Revoke marks the token revoked for ttl and drops every cached profile of
// userID, so the user's other tokens go back to the auth server.
func (s *RedisSessionCache) Revoke(ctx context.Context, accessToken, userID string, ttl time.Duration) error {
	digest := TokenDigest(accessToken)
	keys := []string{userKeyPrefix + digest}
	if userID != "" {
		members, err := s.client.SMembers(ctx, indexKeyPrefix+userID).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("load session index: %w", err)
		}
		for _, member := range members {
			keys = append(keys, userKeyPrefix+member)
		}
		keys = append(keys, indexKeyPrefix+userID)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	if ttl > 0 {
		pipe.Set(ctx, revokedKeyPrefix+digest, "1", ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token was revoked by a logout.
func (s *RedisSessionCache) IsRevoked(ctx context.Context, accessToken string) (bool, error) {
	count, err := s.client.Exists(ctx, revokedKeyPrefix+TokenDigest(accessToken)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return count > 0, nil
}

// TokenDigest returns the hex BLAKE2b-256 digest used as cache key, so raw
// tokens never reach Redis.
func TokenDigest(accessToken string) string {
	sum := blake2b.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:])
}
