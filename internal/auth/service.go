package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidKey indicates a malformed or unverifiable API key.
var ErrInvalidKey = errors.New("invalid api key")

// Service resolves agent API keys of the form "<agentID>.<secret>". Positive
// resolutions are cached in redis with a TTL so horizontal replicas share the
// cache instead of holding process-local state.
type Service struct {
	repo  Repository
	cache *redis.Client
	ttl   time.Duration
}

// NewService constructs the auth service. cache may be nil to disable caching.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl}
}

// ResolveKey verifies the key and returns the owning agent id.
func (s *Service) ResolveKey(ctx context.Context, rawKey string) (uuid.UUID, error) {
	idPart, secret, found := strings.Cut(rawKey, ".")
	if !found || secret == "" {
		return uuid.Nil, ErrInvalidKey
	}
	agentID, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, ErrInvalidKey
	}

	cacheKey := s.cacheKey(rawKey)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil && cached == agentID.String() {
			return agentID, nil
		}
	}

	agent, err := s.repo.Get(ctx, agentID)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return uuid.Nil, ErrInvalidKey
		}
		return uuid.Nil, err
	}
	if err := bcrypt.CompareHashAndPassword(agent.APIKeyHash, []byte(secret)); err != nil {
		return uuid.Nil, ErrInvalidKey
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, agentID.String(), s.ttl).Err()
	}
	return agentID, nil
}

// Invalidate drops a cached key, e.g. after an agent is deactivated.
func (s *Service) Invalidate(ctx context.Context, rawKey string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, s.cacheKey(rawKey)).Err()
}

func (s *Service) cacheKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return "auth:key:" + hex.EncodeToString(sum[:])
}
