package shared

import (
	"context"

	"github.com/google/uuid"
)

type agentContextKey struct{}

// ContextWithAgent stores the resolved agent id in the request context.
func ContextWithAgent(ctx context.Context, agentID uuid.UUID) context.Context {
	return context.WithValue(ctx, agentContextKey{}, agentID)
}

// AgentFromContext extracts the agent id placed by the auth middleware.
func AgentFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(agentContextKey{}).(uuid.UUID)
	return id, ok
}
