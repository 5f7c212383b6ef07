package clients

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	clients map[uuid.UUID]*Client
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{clients: make(map[uuid.UUID]*Client)}
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r *memoryRepo) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	var out []Client
	for _, c := range r.clients {
		if req.Search != nil && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(*req.Search)) {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, client *Client) error {
	r.clients[client.ID] = client
	return nil
}

func (r *memoryRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	c, ok := r.clients[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["name"]; ok {
		c.Name = v.(string)
	}
	if v, ok := updates["company"]; ok {
		company := v.(string)
		c.Company = &company
	}
	return nil
}

func TestCreateAndGetClient(t *testing.T) {
	svc := NewService(newMemoryRepo())
	agent := uuid.New()
	ctx := context.Background()

	email := "purchasing@acme.example"
	created, err := svc.Create(ctx, CreateClientRequest{Name: "Acme Trading", Email: &email}, agent)
	require.NoError(t, err)
	require.Equal(t, agent, created.CreatedBy)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Acme Trading", got.Name)
	require.NotNil(t, got.Email)
}

func TestUpdateClientPartial(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateClientRequest{Name: "Acme"}, uuid.New())
	require.NoError(t, err)

	name := "Acme Trading LLC"
	updated, err := svc.Update(ctx, created.ID, UpdateClientRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)

	// An empty patch is a no-op read.
	same, err := svc.Update(ctx, created.ID, UpdateClientRequest{})
	require.NoError(t, err)
	require.Equal(t, name, same.Name)
}

func TestGetClientNotFound(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListClientsSearch(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateClientRequest{Name: "Acme Trading"}, uuid.New())
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateClientRequest{Name: "Globex"}, uuid.New())
	require.NoError(t, err)

	search := "acme"
	list, total, err := svc.List(ctx, ListClientsRequest{Search: &search})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, list, 1)
	require.Equal(t, "Acme Trading", list[0].Name)
}
