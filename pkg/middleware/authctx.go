// pkg/middleware/authctx.go
package middleware

import (
	"context"
)

// AuthContext is the per-request auth state. Created fresh by AttachAuthData,
// consumed and augmented by ValidateToken, discarded at request end.
type AuthContext struct {
	SaleorAPIURL   string // claimed tenant origin, from the saleor-api-url header
	Token          string // raw dashboard bearer token, from authorization-bearer
	AppID          string // installation app ID resolved from the APL
	AppToken       string // outbound app token resolved from the APL
	ServerRendered bool   // trusted in-process call; signature check is skipped
}

type ctxAuthKey struct{}
type ctxSSRKey struct{}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, ctxAuthKey{}, ac)
}

func AuthFrom(ctx context.Context) (AuthContext, bool) {
	if v := ctx.Value(ctxAuthKey{}); v != nil {
		if ac, ok := v.(AuthContext); ok {
			return ac, true
		}
	}
	return AuthContext{}, false
}

// MarkServerRendered flags a request context as originating from the trusted
// server-side rendering path. Only in-process callers can set it; nothing
// derives it from request headers, so a client cannot claim the trust.
func MarkServerRendered(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxSSRKey{}, true)
}

func serverRendered(ctx context.Context) bool {
	v, _ := ctx.Value(ctxSSRKey{}).(bool)
	return v
}
