package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/crosscartapp/crosscart-backend/api/responses"
	"github.com/crosscartapp/crosscart-backend/pkg/config"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
)

// Pinger is anything the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthDependency names one dependency for the readiness report.
type HealthDependency struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CrossCart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every registered dependency and reports per-dependency
// status. Any failure turns the probe into a 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...HealthDependency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CrossCart-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		report := make(map[string]string, len(deps))
		healthy := true
		for _, dep := range deps {
			if dep.Pinger == nil {
				continue
			}
			if err := dep.Pinger.Ping(ctx); err != nil {
				healthy = false
				report[dep.Name] = "unavailable"
				if logg != nil {
					logg.Error(ctx, "readiness check failed: "+dep.Name, err)
				}
				continue
			}
			report[dep.Name] = "ok"
		}

		status := http.StatusOK
		overall := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status":       overall,
			"dependencies": report,
		})
	}
}
