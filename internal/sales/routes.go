package sales

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/meridian-crm/meridian-crm/internal/shared"
)

// MountRoutes registers the sales endpoints. Payment recording is rate
// limited per agent.
func (h *Handler) MountRoutes(r chi.Router, paymentLimit int, paymentWindow time.Duration) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)

	r.Group(func(r chi.Router) {
		if paymentLimit > 0 {
			r.Use(httprate.Limit(paymentLimit, paymentWindow, httprate.WithKeyFuncs(paymentRateKey)))
		}
		r.Post("/{id}/payments", h.RecordPayment)
	})
}

func paymentRateKey(r *http.Request) (string, error) {
	if agentID, ok := shared.AgentFromContext(r.Context()); ok {
		return "agent:" + agentID.String(), nil
	}
	return httprate.KeyByIP(r)
}
