package controllers

import (
	"net/http"

	"go.uber.org/multierr"

	"github.com/dkotlyarov/shoplite-backend/api/responses"
	"github.com/dkotlyarov/shoplite-backend/pkg/config"
	"github.com/dkotlyarov/shoplite-backend/pkg/db"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
	"github.com/dkotlyarov/shoplite-backend/pkg/logger"
	"github.com/dkotlyarov/shoplite-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shoplite-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every backing dependency and aggregates failures.
func HealthReady(cfg *config.Config, database db.Pinger, cache redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Shoplite-Env", cfg.App.Env)

		var err error
		if database != nil {
			err = multierr.Append(err, database.Ping(r.Context()))
		}
		if cache != nil {
			err = multierr.Append(err, cache.Ping(r.Context()))
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency check failed"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
