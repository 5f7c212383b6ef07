package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryAgents struct {
	agents map[uuid.UUID]*Agent
	gets   int
}

func (r *memoryAgents) Get(ctx context.Context, id uuid.UUID) (*Agent, error) {
	r.gets++
	agent, ok := r.agents[id]
	if !ok {
		return nil, ErrAgentNotFound
	}
	return agent, nil
}

func newTestAgent(t *testing.T, secret string) (*memoryAgents, *Agent) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	agent := &Agent{
		ID:         uuid.New(),
		Name:       "Test Agent",
		Email:      "agent@example.com",
		APIKeyHash: hash,
		Active:     true,
	}
	return &memoryAgents{agents: map[uuid.UUID]*Agent{agent.ID: agent}}, agent
}

func newCache(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestResolveKey(t *testing.T) {
	repo, agent := newTestAgent(t, "s3cret")
	svc := NewService(repo, newCache(t), time.Minute)
	ctx := context.Background()

	id, err := svc.ResolveKey(ctx, agent.ID.String()+".s3cret")
	require.NoError(t, err)
	require.Equal(t, agent.ID, id)
}

func TestResolveKeyCachesPositiveLookups(t *testing.T) {
	repo, agent := newTestAgent(t, "s3cret")
	svc := NewService(repo, newCache(t), time.Minute)
	ctx := context.Background()
	key := agent.ID.String() + ".s3cret"

	_, err := svc.ResolveKey(ctx, key)
	require.NoError(t, err)
	_, err = svc.ResolveKey(ctx, key)
	require.NoError(t, err)
	require.Equal(t, 1, repo.gets, "second lookup must be served from cache")

	require.NoError(t, svc.Invalidate(ctx, key))
	_, err = svc.ResolveKey(ctx, key)
	require.NoError(t, err)
	require.Equal(t, 2, repo.gets)
}

func TestResolveKeyRejections(t *testing.T) {
	repo, agent := newTestAgent(t, "s3cret")
	svc := NewService(repo, newCache(t), time.Minute)
	ctx := context.Background()

	cases := []string{
		"",
		"no-separator",
		agent.ID.String() + ".",
		agent.ID.String() + ".wrong",
		"not-a-uuid.s3cret",
		uuid.NewString() + ".s3cret",
	}
	for _, key := range cases {
		_, err := svc.ResolveKey(ctx, key)
		require.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestResolveKeyWithoutCache(t *testing.T) {
	repo, agent := newTestAgent(t, "s3cret")
	svc := NewService(repo, nil, time.Minute)

	id, err := svc.ResolveKey(context.Background(), agent.ID.String()+".s3cret")
	require.NoError(t, err)
	require.Equal(t, agent.ID, id)
}
