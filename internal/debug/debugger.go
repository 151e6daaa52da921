// internal/debug/debugger.go
package debug

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"saleorauth/pkg/apl"
	"saleorauth/pkg/middleware"
)

// Debugger is a read-only facade over the store and middleware state for
// operator debugging. It never mutates persisted state except through its
// own throwaway health-check record, which it always cleans up.
type Debugger struct {
	store   apl.APL
	backend string
	log     *zap.SugaredLogger
}

func New(store apl.APL, backend string, log *zap.SugaredLogger) *Debugger {
	return &Debugger{store: store, backend: backend, log: log.Named("authdebug")}
}

// entrySummary is a redacted record view: token presence and length only,
// never the raw value.
type entrySummary struct {
	SaleorAPIURL string `json:"saleorApiUrl"`
	Domain       string `json:"domain,omitempty"`
	HasToken     bool   `json:"hasToken"`
	TokenLength  int    `json:"tokenLength"`
	AppID        string `json:"appId,omitempty"`
}

type storeStats struct {
	TotalEntries int            `json:"totalEntries"`
	Entries      []entrySummary `json:"entries"`
}

type AuthDebugInfo struct {
	Backend        string        `json:"backend"`
	SaleorAPIURL   string        `json:"saleorApiUrl,omitempty"`
	AuthDataExists bool          `json:"authDataExists"`
	AuthData       *entrySummary `json:"authData,omitempty"`
	IsConfigured   bool          `json:"isConfigured"`
	Stats          storeStats    `json:"aplStats"`
	Headers        headerEcho    `json:"headers"`
}

type headerEcho struct {
	SaleorAPIURL  string `json:"saleorApiUrl,omitempty"`
	HasAuthBearer bool   `json:"hasAuthorizationBearer"`
}

// DebugAuthState gathers the redacted snapshot for one claimed origin.
func (d *Debugger) DebugAuthState(ctx context.Context, saleorAPIURL string, headers http.Header) AuthDebugInfo {
	info := AuthDebugInfo{
		Backend:      d.backend,
		SaleorAPIURL: saleorAPIURL,
		IsConfigured: d.store.IsConfigured(ctx),
		Headers: headerEcho{
			SaleorAPIURL:  headers.Get(middleware.HeaderSaleorAPIURL),
			HasAuthBearer: headers.Get(middleware.HeaderAuthorizationBearer) != "",
		},
	}
	if saleorAPIURL != "" {
		if data, ok := d.store.Get(ctx, saleorAPIURL); ok {
			info.AuthDataExists = true
			s := summarize(data)
			info.AuthData = &s
		}
	}
	all := d.store.GetAll(ctx)
	info.Stats.TotalEntries = len(all)
	info.Stats.Entries = make([]entrySummary, 0, len(all))
	for _, data := range all {
		info.Stats.Entries = append(info.Stats.Entries, summarize(data))
	}
	d.log.Infow("auth debug info gathered",
		"saleorApiUrl", saleorAPIURL,
		"authDataExists", info.AuthDataExists,
		"totalEntries", info.Stats.TotalEntries)
	return info
}

func summarize(data apl.AuthData) entrySummary {
	return entrySummary{
		SaleorAPIURL: data.SaleorAPIURL,
		Domain:       data.Domain,
		HasToken:     data.Token != "",
		TokenLength:  len(data.Token),
		AppID:        data.AppID,
	}
}

type HealthReport struct {
	IsHealthy bool     `json:"isHealthy"`
	Backend   string   `json:"backend"`
	CanWrite  bool     `json:"canWrite"`
	CanRead   bool     `json:"canRead"`
	Errors    []string `json:"errors"`
}

// CheckHealth performs a synthetic round-trip: write a throwaway record,
// read it back, delete it. A cleanup failure is reported but does not
// retroactively fail the write/read checks already observed.
func (d *Debugger) CheckHealth(ctx context.Context) HealthReport {
	rep := HealthReport{Backend: d.backend, Errors: []string{}}
	probe := apl.AuthData{
		SaleorAPIURL: fmt.Sprintf("https://healthcheck-%s.invalid/graphql/", uuid.NewString()),
		Token:        "healthcheck-token",
		AppID:        "healthcheck",
	}
	if err := d.store.Set(ctx, probe); err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("write check failed: %v", err))
		rep.IsHealthy = false
		return rep
	}
	rep.CanWrite = true
	if _, ok := d.store.Get(ctx, probe.SaleorAPIURL); ok {
		rep.CanRead = true
	} else {
		rep.Errors = append(rep.Errors, "read check failed: probe record not found after write")
	}
	if err := d.store.Delete(ctx, probe.SaleorAPIURL); err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("cleanup failed: %v", err))
	}
	rep.IsHealthy = rep.CanWrite && rep.CanRead && len(rep.Errors) == 0
	return rep
}

// LogAuthFailureDetails dumps the middleware-failure context for operators.
func (d *Debugger) LogAuthFailureDetails(saleorAPIURL string, ac middleware.AuthContext) {
	d.log.Errorw("authentication failure details",
		"saleorApiUrl", saleorAPIURL,
		"hasSaleorApiUrl", ac.SaleorAPIURL != "",
		"hasToken", ac.Token != "",
		"hasAppId", ac.AppID != "",
		"serverRendered", ac.ServerRendered,
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	)
}
