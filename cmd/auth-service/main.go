// cmd/auth-service/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"saleorauth/internal/debug"
	"saleorauth/internal/policy"
	"saleorauth/internal/register"
	"saleorauth/pkg/apl"
	"saleorauth/pkg/auth"
	"saleorauth/pkg/config"
	"saleorauth/pkg/logger"
	"saleorauth/pkg/middleware"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	// The store is constructed once here and injected everywhere; there is
	// no global singleton. Lifecycle = process lifetime.
	var store apl.APL
	switch cfg.APLBackend {
	case "postgres":
		pool := apl.MustConnect(cfg, log)
		if err := apl.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("apl schema", "err", err)
		}
		store = apl.NewPostgresAPL(pool, log)
	case "redis":
		store = apl.NewRedisAPL(apl.MustRedis(cfg, log), log)
	case "memory":
		store = apl.NewMemoryAPL(log)
	default:
		store = apl.NewFileAPL(cfg.APLFilePath, log)
	}

	pol, err := policy.New(cfg.PolicyModulePath, log)
	if err != nil {
		log.Fatalw("permission policy", "err", err)
	}
	routePerms, err := config.LoadRoutePermissions(cfg.RoutePermissionsFile)
	if err != nil {
		log.Fatalw("route permissions", "err", err)
	}
	verifier := auth.NewVerifier(log, cfg.ClockSkew, cfg.JWKSCacheTTL)
	dbg := debug.New(store, cfg.APLBackend, log)
	reg, err := register.New(store, cfg.AllowedOriginPattern, log)
	if err != nil {
		log.Fatalw("allowed domain pattern", "err", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(log))
	r.Use(middleware.DebugWriteHeader(log))
	r.Use(middleware.Tracing())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/debug/auth", debug.Handler(dbg, cfg))

	// Installation handshake: mounted outside the resolver chain because no
	// credential record exists yet when it runs.
	r.Post("/api/register", reg.ServeHTTP)

	// Protected API: resolver then validator, per route so each pattern can
	// carry its own extra permissions from the route permissions file.
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AttachAuthData(store, log))
		protected := func(pattern string, h http.HandlerFunc) {
			r.With(middleware.ValidateToken(verifier, pol, log, cfg.BasePermissions, routePerms.For("/api"+pattern)...)).
				Get(pattern, h)
		}
		protected("/auth-status", authStatusHandler)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Infow("auth-service listening", "addr", cfg.HTTPAddr, "apl", cfg.APLBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("auth-service stopped")
}

// authStatusHandler reports the resolved, validated auth context back to the
// dashboard. Raw tokens never leave the service.
func authStatusHandler(w http.ResponseWriter, r *http.Request) {
	ac, ok := middleware.AuthFrom(r.Context())
	if !ok {
		auth.WriteJSON(w, auth.Inconsistency("auth-context-missing",
			"No auth context on request. Handler must be mounted behind AttachAuthData."))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"saleorApiUrl":   ac.SaleorAPIURL,
		"appId":          ac.AppID,
		"hasAppToken":    ac.AppToken != "",
		"serverRendered": ac.ServerRendered,
	})
}
