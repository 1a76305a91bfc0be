// Package health contiene el service para health checks.
package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/dropDatabas3/humanid/internal/http/dto/health"
	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// Deps contiene las dependencias inyectables para el health service.
type Deps struct {
	Version    string
	StoreCheck func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	JWT        *jwt.Service
	Now        func() time.Time
}

type healthService struct {
	deps Deps
}

// NewHealthService crea un nuevo service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &healthService{deps: deps}
}

const componentHealth = "health"

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentHealth),
		logger.Op("Check"),
	)

	response := dto.HealthResponse{
		Version:    s.deps.Version,
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  s.deps.Now().UTC(),
	}
	hasErrors, hasCriticalErrors := false, false

	// 1) Store (crítico)
	if s.deps.StoreCheck != nil {
		if err := s.deps.StoreCheck(ctx); err != nil {
			response.Components["store"] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			hasCriticalErrors = true
			log.Error("store unavailable", logger.Err(err))
		} else {
			response.Components["store"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["store"] = dto.HealthStatus{Status: "error", Message: "store not initialized"}
		hasCriticalErrors = true
	}

	// 2) Keystore (crítico)
	if s.deps.JWT != nil {
		kid, err := s.checkKeystore()
		if err != nil {
			response.Components["keystore"] = dto.HealthStatus{Status: "error", Message: err.Error()}
			hasCriticalErrors = true
			log.Error("keystore check failed", logger.Err(err))
		} else {
			response.Components["keystore"] = dto.HealthStatus{Status: "ok"}
			response.ActiveKeyID = kid
		}
	} else {
		response.Components["keystore"] = dto.HealthStatus{Status: "error", Message: "jwt service not initialized"}
		hasCriticalErrors = true
	}

	// 3) Redis (no crítico)
	if s.deps.RedisCheck != nil {
		if err := s.deps.RedisCheck(ctx); err != nil {
			response.Components["redis"] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			hasErrors = true
			log.Warn("redis unavailable", logger.Err(err))
		} else {
			response.Components["redis"] = dto.HealthStatus{Status: "ok"}
		}
	} else {
		response.Components["redis"] = dto.HealthStatus{Status: "disabled", Message: "in-process backends"}
	}

	switch {
	case hasCriticalErrors:
		response.Status = "unavailable"
	case hasErrors:
		response.Status = "degraded"
	default:
		response.Status = "ready"
	}
	return response
}

// checkKeystore firma y verifica un token corto con la clave actual.
func (s *healthService) checkKeystore() (string, error) {
	set, err := s.deps.JWT.JWKS()
	if err != nil {
		return "", fmt.Errorf("load keys: %w", err)
	}
	signed, err := s.deps.JWT.IssueAPIKey("selfcheck")
	if err != nil {
		return "", fmt.Errorf("sign failed: %w", err)
	}
	if _, err := s.deps.JWT.Verify(signed); err != nil {
		return "", fmt.Errorf("verify failed: %w", err)
	}
	return set.Keys[0].Kid, nil
}
