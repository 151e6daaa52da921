// internal/debug/handler.go
package debug

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"saleorauth/pkg/config"
	"saleorauth/pkg/middleware"
)

type requestInfo struct {
	Method    string `json:"method"`
	URL       string `json:"url"`
	UserAgent string `json:"userAgent,omitempty"`
	Origin    string `json:"origin,omitempty"`
}

type environmentInfo struct {
	Env                  string `json:"env"`
	Backend              string `json:"aplBackend"`
	HasSecretKey         bool   `json:"hasSecretKey"`
	AllowedOriginPattern string `json:"allowedDomainPattern,omitempty"`
	OTLPEndpoint         string `json:"otlpEndpoint,omitempty"`
}

type debugResponse struct {
	Timestamp   string          `json:"timestamp"`
	RequestInfo requestInfo     `json:"requestInfo"`
	Auth        AuthDebugInfo   `json:"authDebugInfo"`
	Health      HealthReport    `json:"aplHealth"`
	Environment environmentInfo `json:"environment"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Handler serves the GET-only auth diagnostics endpoint.
func Handler(d *Debugger, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			_ = json.NewEncoder(w).Encode(errorResponse{
				Error:     "method not allowed",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		saleorAPIURL := r.Header.Get(middleware.HeaderSaleorAPIURL)
		d.log.Infow("debug auth endpoint called", "saleorApiUrl", saleorAPIURL)

		resp := debugResponse{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			RequestInfo: requestInfo{
				Method:    r.Method,
				URL:       r.URL.String(),
				UserAgent: r.UserAgent(),
				Origin:    r.Header.Get("Origin"),
			},
			Auth:   d.DebugAuthState(r.Context(), saleorAPIURL, r.Header),
			Health: d.CheckHealth(r.Context()),
			Environment: environmentInfo{
				Env:                  cfg.Env,
				Backend:              cfg.APLBackend,
				HasSecretKey:         cfg.SecretKey != "",
				AllowedOriginPattern: cfg.AllowedOriginPattern,
				OTLPEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			},
		}

		buf, err := json.Marshal(resp)
		if err != nil {
			d.log.Errorw("debug auth response encoding failed", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(errorResponse{
				Error:     "internal server error",
				Message:   err.Error(),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		_, _ = w.Write(buf)
	}
}
