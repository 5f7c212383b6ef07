package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAgentNotFound indicates no active agent matches the credential.
var ErrAgentNotFound = errors.New("agent not found")

// Agent is an authenticated CRM user. Only the resolved id is consumed by
// the rest of the system.
type Agent struct {
	ID         uuid.UUID
	Name       string
	Email      string
	APIKeyHash []byte
	Active     bool
	CreatedAt  time.Time
}

// Repository looks up agents for credential resolution.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Agent, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pgx-backed agent repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Agent, error) {
	query := `SELECT id, name, email, api_key_hash, active, created_at FROM agents WHERE id = $1 AND active`
	var a Agent
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.Email, &a.APIKeyHash, &a.Active, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return &a, nil
}
