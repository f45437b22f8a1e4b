package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/LLTIGER/pulse-architects-sub001/api/responses"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/config"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Pinger is any dependency the service needs to be ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency and answers 503 on the first failure.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				errCtx := r.Context()
				if logg != nil {
					errCtx = logg.WithField(errCtx, "dependency", name)
				}
				responses.WriteError(errCtx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
