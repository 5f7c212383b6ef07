package sales

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestClassifyWriteError(t *testing.T) {
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}
	require.ErrorIs(t, classifyWriteError(serialization), errVersionConflict)

	wrapped := fmt.Errorf("exec: %w", serialization)
	require.ErrorIs(t, classifyWriteError(wrapped), errVersionConflict)

	// The wrapping the repository applies must keep the sentinel reachable
	// for the service retry loop.
	repoErr := fmt.Errorf("update credit status: %w", classifyWriteError(serialization))
	require.ErrorIs(t, repoErr, errVersionConflict)

	other := &pgconn.PgError{Code: "23505"}
	require.NotErrorIs(t, classifyWriteError(other), errVersionConflict)

	plain := errors.New("connection reset")
	require.Equal(t, plain, classifyWriteError(plain))
}
