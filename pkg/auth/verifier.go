// pkg/auth/verifier.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"
)

// Verification failure kinds. The middleware classifies on these; message
// matching is a fallback for errors that did not originate here.
var (
	ErrTokenExpired            = errors.New("token is expired")
	ErrAppIDMismatch           = errors.New("token app property is different than app ID")
	ErrSignatureInvalid        = errors.New("token signature verification failed")
	ErrInsufficientPermissions = errors.New("token is missing required permissions")
)

// jwksCache caches JWKS sets per URL.
type jwksCache struct {
	mu   sync.RWMutex
	sets map[string]cachedJWKS
}

type cachedJWKS struct {
	set     jwk.Set
	expires time.Time
}

func (c *jwksCache) get(ctx context.Context, url string, ttl time.Duration) (jwk.Set, error) {
	c.mu.RLock()
	if e, ok := c.sets[url]; ok && time.Now().Before(e.expires) {
		c.mu.RUnlock()
		return e.set, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets == nil {
		c.sets = map[string]cachedJWKS{}
	}
	if e, ok := c.sets[url]; ok && time.Now().Before(e.expires) {
		return e.set, nil
	}
	set, err := jwk.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	c.sets[url] = cachedJWKS{set: set, expires: time.Now().Add(ttl)}
	return set, nil
}

// Verifier checks dashboard tokens against the JWKS published by the Saleor
// instance that issued them.
type Verifier struct {
	cache   *jwksCache
	skew    time.Duration
	jwksTTL time.Duration
	log     *zap.SugaredLogger
}

func NewVerifier(log *zap.SugaredLogger, skew, jwksTTL time.Duration) *Verifier {
	return &Verifier{cache: &jwksCache{}, skew: skew, jwksTTL: jwksTTL, log: log.Named("verifier")}
}

// VerifyParams carries everything one verification needs. RequiredPermissions
// may be empty, in which case only identity and integrity are checked.
type VerifyParams struct {
	AppID               string
	Token               string
	SaleorAPIURL        string
	RequiredPermissions []string
}

// Verify parses and validates the token: signature against the instance
// JWKS, registered claims (exp/nbf/iat with acceptable skew), issuer, the
// app claim against the stored app ID, and the permission subset.
func (v *Verifier) Verify(ctx context.Context, p VerifyParams) error {
	if strings.TrimSpace(p.Token) == "" {
		return fmt.Errorf("empty token")
	}
	if len(strings.Split(p.Token, ".")) != 3 {
		return fmt.Errorf("malformed token")
	}
	jwksURL, err := JWKSURLFor(p.SaleorAPIURL)
	if err != nil {
		return fmt.Errorf("derive jwks url: %w", err)
	}
	set, err := v.cache.get(ctx, jwksURL, v.jwksTTL)
	if err != nil {
		return fmt.Errorf("fetch jwks %s: %w", jwksURL, err)
	}

	tok, err := jwt.Parse([]byte(p.Token),
		jwt.WithKeySet(set),
		jwt.WithVerify(true),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.skew),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		if strings.Contains(err.Error(), "verif") || strings.Contains(err.Error(), "signature") {
			return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
		return fmt.Errorf("parse token: %w", err)
	}

	// Saleor sets iss to the API URL (older versions to its bare host).
	if iss := tok.Issuer(); iss != "" && !issuerMatches(iss, p.SaleorAPIURL) {
		return fmt.Errorf("token issuer %q does not match %q", iss, p.SaleorAPIURL)
	}
	if app, ok := tok.Get("app"); ok {
		if s, _ := app.(string); s != "" && s != p.AppID {
			return fmt.Errorf("%w: token app %q, stored %q", ErrAppIDMismatch, s, p.AppID)
		}
	}
	if len(p.RequiredPermissions) > 0 {
		granted := GrantedPermissions(tok.PrivateClaims())
		if missing := Missing(granted, p.RequiredPermissions); len(missing) > 0 {
			return fmt.Errorf("%w: missing %s", ErrInsufficientPermissions, strings.Join(missing, ","))
		}
	}
	return nil
}

// JWKSURLFor derives the well-known JWKS location from the instance API URL
// (scheme and host only; the /graphql/ path is dropped).
func JWKSURLFor(saleorAPIURL string) (string, error) {
	u, err := url.Parse(saleorAPIURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid saleor api url %q", saleorAPIURL)
	}
	return u.Scheme + "://" + u.Host + "/.well-known/jwks.json", nil
}

func issuerMatches(iss, saleorAPIURL string) bool {
	trim := func(s string) string { return strings.TrimRight(s, "/") }
	if trim(iss) == trim(saleorAPIURL) {
		return true
	}
	if u, err := url.Parse(saleorAPIURL); err == nil && (iss == u.Host || trim(iss) == u.Scheme+"://"+u.Host) {
		return true
	}
	return false
}

// Classify maps a verification failure onto the rejection taxonomy, in
// priority order: expiry, app ID mismatch, signature, permission, generic.
// Sentinel kinds are checked first; message inspection covers errors from
// other verifiers, as the classification is part of the response contract.
func Classify(err error) *Error {
	msg := err.Error()
	switch {
	case errors.Is(err, ErrTokenExpired) || strings.Contains(msg, "expired"):
		return Unauthorized("token-expired",
			"Token has expired. Refresh the page or reinstall the app from the Saleor dashboard.", err)
	case errors.Is(err, ErrAppIDMismatch) || strings.Contains(msg, "app ID") || strings.Contains(msg, "app property"):
		return Unauthorized("app-id-mismatch",
			"Token app ID does not match the stored installation. Reinstall the app from the Saleor dashboard to sync app IDs.", err)
	case errors.Is(err, ErrSignatureInvalid) || strings.Contains(msg, "signature"):
		return Unauthorized("signature-verification-failed",
			"Token signature could not be verified, likely after a key rotation. Reinstall the app from the Saleor dashboard.", err)
	case errors.Is(err, ErrInsufficientPermissions) || strings.Contains(msg, "permission"):
		return Forbidden("insufficient-permissions",
			"Your dashboard account lacks the permissions this app requires. Ask an admin for an elevated role.", err)
	default:
		return Unauthorized("token-verification-failed",
			"Token verification failed. Check your authentication and try again.", err)
	}
}
