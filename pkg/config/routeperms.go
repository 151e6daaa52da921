// pkg/config/routeperms.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RoutePermissions maps a route pattern (as registered on the router) to the
// extra dashboard permissions that route requires on top of BasePermissions.
//
// File format:
//
//	routes:
//	  /api/configuration: [MANAGE_SETTINGS]
//	  /api/channels: [MANAGE_CHANNELS, MANAGE_SETTINGS]
type RoutePermissions map[string][]string

func LoadRoutePermissions(path string) (RoutePermissions, error) {
	if path == "" {
		return RoutePermissions{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route permissions file: %w", err)
	}
	var doc struct {
		Routes map[string][]string `yaml:"routes"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse route permissions file: %w", err)
	}
	if doc.Routes == nil {
		return RoutePermissions{}, nil
	}
	return RoutePermissions(doc.Routes), nil
}

// For returns the extra permissions configured for a route pattern.
func (rp RoutePermissions) For(pattern string) []string {
	return rp[pattern]
}
