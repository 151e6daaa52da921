// pkg/middleware/resolver.go
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"saleorauth/pkg/apl"
	"saleorauth/pkg/auth"
	"saleorauth/pkg/metrics"
)

// Headers the Saleor dashboard sends with every app request.
const (
	HeaderSaleorAPIURL        = "saleor-api-url"
	HeaderAuthorizationBearer = "authorization-bearer"
)

// AttachAuthData resolves the credential record for the caller's claimed
// tenant origin and attaches it to the request context. It fails closed:
// no claim is a bad request, an unknown claim is unauthorized. Nothing
// downstream runs without a resolved record.
func AttachAuthData(store apl.APL, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	log = log.Named("resolver")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			saleorAPIURL := strings.TrimSpace(r.Header.Get(HeaderSaleorAPIURL))
			if saleorAPIURL == "" {
				metrics.AuthDecision("resolver", "missing_origin")
				auth.WriteJSON(w, auth.BadRequest("missing-saleor-api-url",
					"Request carries no saleor-api-url header. Access the app through the Saleor dashboard with AppBridge initialized."))
				return
			}

			data, ok := store.Get(r.Context(), saleorAPIURL)
			if !ok {
				logResolutionFailure(r.Context(), log, store, saleorAPIURL)
				metrics.AuthDecision("resolver", "not_found")
				auth.WriteJSON(w, auth.Unauthorized("auth-data-not-found",
					fmt.Sprintf("no credential data found for %s; install the app through the Saleor dashboard, or verify the saleor-api-url header matches your instance", saleorAPIURL),
					nil))
				return
			}

			metrics.AuthDecision("resolver", "resolved")
			ac := AuthContext{
				SaleorAPIURL:   data.SaleorAPIURL,
				Token:          strings.TrimSpace(r.Header.Get(HeaderAuthorizationBearer)),
				AppID:          data.AppID,
				AppToken:       data.Token,
				ServerRendered: serverRendered(r.Context()),
			}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), ac)))
		})
	}
}

// logResolutionFailure emits the diagnostic snapshot operators need to tell
// "never installed for this tenant" from "installed elsewhere". Logging side
// effect only; it never changes the rejection.
func logResolutionFailure(ctx context.Context, log *zap.SugaredLogger, store apl.APL, saleorAPIURL string) {
	all := store.GetAll(ctx)
	configured := make([]string, 0, len(all))
	for _, d := range all {
		configured = append(configured, d.SaleorAPIURL)
	}
	log.Warnw("auth data not found for claimed origin",
		"saleorApiUrl", saleorAPIURL,
		"anyConfigured", len(all) > 0,
		"configuredCount", len(all),
		"configuredOrigins", configured,
	)
}
