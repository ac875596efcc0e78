package server

import (
	"net/http"

	"github.com/ermiller24/executive-layer/internal/types"
)

type healthResponse struct {
	Status     string                        `json:"status"`
	Components map[string]types.HealthStatus `json:"components"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]types.HealthStatus{
		"graph":    s.tools.Store().Health(r.Context()),
		"embedder": s.embedder.Health(r.Context()),
	}

	status := types.HealthStateHealthy
	httpStatus := http.StatusOK
	for _, c := range components {
		if c.IsUnhealthy() {
			status = types.HealthStateUnhealthy
			httpStatus = http.StatusServiceUnavailable
			break
		}
		if c.IsDegraded() {
			status = types.HealthStateDegraded
		}
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:     status.String(),
		Components: components,
	})
}
