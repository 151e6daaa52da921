// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// Auth persistence backend: file | memory | redis | postgres
	APLBackend  string
	APLFilePath string

	// Redis & Postgres (required only when the matching backend is selected)
	RedisURL    string
	DatabaseURL string

	// Token verification
	AllowedOriginPattern string // regexp restricting acceptable saleor-api-url values ("" = any)
	SecretKey            string // app secret, opaque here; presence is reported by diagnostics
	ClockSkew            time.Duration
	BasePermissions      []string // baseline dashboard permissions every protected route requires
	JWKSCacheTTL         time.Duration

	// Optional rego module overriding the default permission check
	PolicyModulePath string

	// Optional YAML file mapping route patterns to extra required permissions
	RoutePermissionsFile string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                  env("APP_ENV", "dev"),
		HTTPAddr:             env("APP_HTTP_ADDR", ":3000"),
		APLBackend:           env("APL", "file"),
		APLFilePath:          env("APL_FILE_PATH", ".saleor-app-auth.json"),
		RedisURL:             env("REDIS_URL", ""),
		DatabaseURL:          env("DATABASE_URL", ""),
		AllowedOriginPattern: env("ALLOWED_DOMAIN_PATTERN", ""),
		SecretKey:            env("SECRET_KEY", ""),
		ClockSkew:            envDur("JWT_CLOCK_SKEW_SEC", 60) * time.Second,
		BasePermissions:      envList("BASE_PERMISSIONS", []string{"MANAGE_APPS"}),
		JWKSCacheTTL:         envDur("JWKS_CACHE_TTL_SEC", 21600) * time.Second,
		PolicyModulePath:     env("PERMISSION_POLICY_REGO", ""),
		RoutePermissionsFile: env("ROUTE_PERMISSIONS_FILE", ""),
	}
	if cfg.APLBackend == "postgres" && cfg.DatabaseURL == "" {
		log.Println("[WARN] APL=postgres but DATABASE_URL not set; falling back to file backend")
		cfg.APLBackend = "file"
	}
	if cfg.APLBackend == "redis" && cfg.RedisURL == "" {
		log.Println("[WARN] APL=redis but REDIS_URL not set; falling back to file backend")
		cfg.APLBackend = "file"
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}

func envList(k string, def []string) []string {
	if v := os.Getenv(k); v != "" {
		var out []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
