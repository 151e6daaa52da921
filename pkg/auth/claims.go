// pkg/auth/claims.go
package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	jmes "github.com/jmespath/go-jmespath"
)

// Dashboard tokens have carried their granted permissions under several
// field names across Saleor versions. Normalization runs every extraction
// path over the decoded payload and unions the results into one canonical
// set before any policy check; nothing downstream looks at raw claim fields.
var permissionPaths = []string{
	"permissions",
	"perms",
	"scope",
	"user_permissions",
}

// DecodePayload decodes the middle segment of a three-segment compact JWT
// without verifying the signature. Verification is a separate step; this
// exists so permission policy and diagnostics can inspect claims first.
func DecodePayload(token string) (map[string]any, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("token has %d segments, want 3", len(parts))
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse token payload: %w", err)
	}
	return payload, nil
}

// GrantedPermissions returns the canonical granted-permission set: the union
// of every tolerated claim field, sorted and de-duplicated.
func GrantedPermissions(payload map[string]any) []string {
	seen := map[string]struct{}{}
	for _, path := range permissionPaths {
		for _, p := range extract(payload, path) {
			seen[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// UserPermissions returns only the user_permissions claim. The validator
// treats this field specially; see ValidateToken.
func UserPermissions(payload map[string]any) []string {
	return extract(payload, "user_permissions")
}

// extract evaluates one jmespath expression against the payload and coerces
// the result into a permission list. A string result is split on whitespace
// (the OAuth-style scope encoding); a list result is filtered to strings.
func extract(payload map[string]any, path string) []string {
	res, err := jmes.Search(path, payload)
	if err != nil || res == nil {
		return nil
	}
	switch v := res.(type) {
	case string:
		return strings.Fields(v)
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// HasAll reports whether granted covers every required permission.
func HasAll(granted, required []string) bool {
	return len(Missing(granted, required)) == 0
}

// Missing returns the required permissions not present in granted.
func Missing(granted, required []string) []string {
	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		set[g] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := set[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// ClaimsSummary is a redacted view of a token payload for diagnostics.
type ClaimsSummary struct {
	Issuer      string   `json:"issuer,omitempty"`
	Subject     string   `json:"subject,omitempty"`
	Audience    string   `json:"audience,omitempty"`
	ExpiresAt   int64    `json:"expiresAt,omitempty"`
	NotBefore   int64    `json:"notBefore,omitempty"`
	IssuedAt    int64    `json:"issuedAt,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func Summarize(payload map[string]any) ClaimsSummary {
	s := ClaimsSummary{
		Issuer:      str(payload, "iss"),
		Subject:     str(payload, "sub"),
		Audience:    str(payload, "aud"),
		ExpiresAt:   num(payload, "exp"),
		NotBefore:   num(payload, "nbf"),
		IssuedAt:    num(payload, "iat"),
		Permissions: GrantedPermissions(payload),
	}
	return s
}

func str(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func num(payload map[string]any, key string) int64 {
	if v, ok := payload[key].(float64); ok {
		return int64(v)
	}
	return 0
}
