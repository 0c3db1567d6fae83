package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/Abdallah-AbouHamdan/SHOP-4U/api/responses"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/config"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/db"
	pkgerrors "github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/errors"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/logger"
	"github.com/Abdallah-AbouHamdan/SHOP-4U/pkg/redis"
)

const readinessTimeout = 2 * time.Second

type healthStatus struct {
	Status string            `json:"status"`
	Env    string            `json:"env"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthLive reports process liveness without touching dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, healthStatus{Status: "ok", Env: cfg.App.Env})
	}
}

// HealthReady verifies the database and redis connections.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["db"] = checkDependency(ctx, func(ctx context.Context) error {
			if dbP == nil {
				return nil
			}
			return dbP.Ping(ctx)
		}, &healthy)
		checks["redis"] = checkDependency(ctx, func(ctx context.Context) error {
			if redisP == nil {
				return nil
			}
			return redisP.Ping(ctx)
		}, &healthy)

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, healthStatus{Status: "ok", Env: cfg.App.Env, Checks: checks})
	}
}

func checkDependency(ctx context.Context, ping func(context.Context) error, healthy *bool) string {
	if err := ping(ctx); err != nil {
		*healthy = false
		return err.Error()
	}
	return "ok"
}
