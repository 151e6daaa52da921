// internal/register/handler.go
package register

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"saleorauth/pkg/apl"
	"saleorauth/pkg/auth"
	"saleorauth/pkg/middleware"
)

// Handler implements the installation handshake: the Saleor instance calls
// it during app installation with the issued auth token, and the credential
// record is persisted idempotently. Re-installation overwrites; the APL
// enforces one record per origin.
type Handler struct {
	store          apl.APL
	allowedPattern *regexp.Regexp // nil = any origin accepted
	log            *zap.SugaredLogger
}

// New compiles the allowed-origin pattern ("" disables the check).
func New(store apl.APL, allowedPattern string, log *zap.SugaredLogger) (*Handler, error) {
	h := &Handler{store: store, log: log.Named("register")}
	if allowedPattern != "" {
		re, err := regexp.Compile(allowedPattern)
		if err != nil {
			return nil, err
		}
		h.allowedPattern = re
	}
	return h, nil
}

type registerRequest struct {
	AuthToken string `json:"auth_token"`
	AppID     string `json:"app_id"`
	Domain    string `json:"domain"`
	JWKS      string `json:"jwks"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	saleorAPIURL := strings.TrimSpace(r.Header.Get(middleware.HeaderSaleorAPIURL))
	if saleorAPIURL == "" {
		auth.WriteJSON(w, auth.BadRequest("missing-saleor-api-url",
			"Registration requires the saleor-api-url header identifying the installing instance."))
		return
	}
	if h.allowedPattern != nil && !h.allowedPattern.MatchString(saleorAPIURL) {
		h.log.Warnw("registration from disallowed origin", "saleorApiUrl", saleorAPIURL)
		auth.WriteJSON(w, auth.Forbidden("origin-not-allowed",
			"This instance origin does not match the allowed domain pattern configured for the app.", nil))
		return
	}

	var body registerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.AuthToken == "" {
		auth.WriteJSON(w, auth.BadRequest("missing-auth-token",
			"Registration body must carry the auth_token issued by the instance."))
		return
	}

	data := apl.AuthData{
		SaleorAPIURL: saleorAPIURL,
		Token:        body.AuthToken,
		AppID:        body.AppID,
		Domain:       body.Domain,
		JWKS:         body.JWKS,
	}
	if err := h.store.Set(r.Context(), data); err != nil {
		// Losing a credential write must be observable, never swallowed.
		h.log.Errorw("registration persist failed", "saleorApiUrl", saleorAPIURL, "err", err)
		auth.WriteJSON(w, auth.StorageWrite(err))
		return
	}

	h.log.Infow("app registered", "saleorApiUrl", saleorAPIURL, "appId", body.AppID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}
