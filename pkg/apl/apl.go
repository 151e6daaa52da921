// pkg/apl/apl.go
package apl

import "context"

// AuthData is the credential record issued by a Saleor instance during the
// installation handshake. SaleorAPIURL is the sole lookup key; at most one
// record per URL exists in a store at any time.
type AuthData struct {
	SaleorAPIURL string `json:"saleorApiUrl"`
	Token        string `json:"token"`
	AppID        string `json:"appId"`
	Domain       string `json:"domain,omitempty"`
	JWKS         string `json:"jwks,omitempty"`
}

// APL is the auth persistence layer. Every implementation provides all five
// operations; there is no optional capability probing.
//
// Read semantics are fail-open: Get, GetAll and IsConfigured never surface
// I/O or parse failures to the caller. An unreadable store is operationally
// equivalent to "nothing installed yet" and must not break request handling;
// implementations log such failures instead. Write semantics are the
// opposite: Set and Delete propagate failures, because silently losing a
// credential write is a correctness incident.
type APL interface {
	// Get returns the record for the given API URL, or ok=false if absent.
	Get(ctx context.Context, saleorAPIURL string) (AuthData, bool)
	// Set upserts a record keyed by its SaleorAPIURL.
	Set(ctx context.Context, data AuthData) error
	// Delete removes the record for the given API URL. Deleting an absent
	// key is a no-op, not an error.
	Delete(ctx context.Context, saleorAPIURL string) error
	// GetAll returns every stored record. Used by diagnostics only.
	GetAll(ctx context.Context) []AuthData
	// IsConfigured reports whether the store holds at least one record, or
	// whether the backing resource does not exist yet (not yet configured
	// but configurable). A backing resource that exists but holds zero
	// records reports false.
	IsConfigured(ctx context.Context) bool
}
