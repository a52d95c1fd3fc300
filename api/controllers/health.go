package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/outre-records/inventory-core/api/responses"
	"github.com/outre-records/inventory-core/pkg/config"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
)

const (
	envHeader        = "X-Invcore-Env"
	readinessTimeout = 2 * time.Second
)

// Pinger is any dependency the readiness probe can check.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency and reports 503 when any is down.
// Nil pingers are reported as skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed error
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "skipped"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
					WithDetails(map[string]any{"checks": checks})
				continue
			}
			checks[name] = "ok"
		}
		if failed != nil {
			responses.WriteError(ctx, logg, w, failed)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
