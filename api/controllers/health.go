package controllers

import (
	"net/http"

	"github.com/wycenapp/wycena-sync/api/responses"
	"github.com/wycenapp/wycena-sync/pkg/config"
	"github.com/wycenapp/wycena-sync/pkg/db"
	pkgerrors "github.com/wycenapp/wycena-sync/pkg/errors"
	"github.com/wycenapp/wycena-sync/pkg/logger"
)

// HealthLive reports process liveness only.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady reports readiness: the local database must answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "database not wired"))
			return
		}
		if err := dbP.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "database ping failed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"status": "ready",
			"env":    cfg.App.Env,
		})
	}
}
