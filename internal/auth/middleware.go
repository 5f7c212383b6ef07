package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/meridian-crm/meridian-crm/internal/platform/httpx"
	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// Middleware resolves the calling agent from the Authorization header and
// stores the agent id in the request context.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAgent rejects requests without a valid bearer API key.
func (m Middleware) RequireAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey, ok := bearerToken(r)
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer credentials")
			return
		}

		agentID, err := m.Service.ResolveKey(r.Context(), rawKey)
		if err != nil {
			if errors.Is(err, ErrInvalidKey) {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
				return
			}
			m.Logger.Error("resolve api key", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}

		ctx := shared.ContextWithAgent(r.Context(), agentID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
