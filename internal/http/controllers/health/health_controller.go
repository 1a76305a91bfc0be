// Package health contiene el controller para health checks.
package health

import (
	"net/http"

	"github.com/dropDatabas3/humanid/internal/http/helpers"
	svc "github.com/dropDatabas3/humanid/internal/http/services/health"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// HealthController maneja GET /healthz.
type HealthController struct {
	service svc.HealthService
}

// NewHealthController crea un nuevo controller de health check.
func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	response := c.service.Check(ctx)

	if response.Version != "" {
		w.Header().Set("X-Service-Version", response.Version)
	}
	if response.ActiveKeyID != "" {
		w.Header().Set("X-JWKS-KID", response.ActiveKeyID)
	}

	status := http.StatusOK
	if response.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	logger.From(ctx).Debug("health check completed",
		logger.Layer("controller"),
		logger.String("status", response.Status),
		logger.Int("components_count", len(response.Components)))
	helpers.WriteJSON(w, status, response)
}
