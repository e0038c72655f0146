package rbac

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/harun/senja/pkg/tools"
)

// FilterToolsForRole returns the subset of allNames visible to role,
// preserving allNames order. Configured names that match no registered tool
// are silently dropped. A role with no entry falls back to the "user" entry;
// with neither present the filter fails open and returns everything with a
// warning.
func FilterToolsForRole(allNames []string, role string, cfg RoleToolConfig) []string {
	if cfg == nil {
		return allNames
	}

	allowed, ok := cfg[role]
	if !ok {
		allowed, ok = cfg[FallbackRole]
	}
	if !ok {
		log.Warn().
			Str("role", role).
			Strs("known_roles", cfg.Roles()).
			Msg("Role has no tool config and no user fallback, allowing all tools")
		return allNames
	}

	for _, name := range allowed {
		if name == AllToolsSentinel {
			return allNames
		}
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}

	filtered := make([]string, 0, len(allowed))
	for _, name := range allNames {
		if _, ok := allowedSet[name]; ok {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

// ResolveRole picks the effective role for a request. Priority: a role
// asserted by the auth layer, then the client-supplied header value, then the
// configured default, then the literal "user".
func ResolveRole(assertedRole, headerRole, defaultRole string) string {
	if r := strings.TrimSpace(assertedRole); r != "" {
		return r
	}
	if r := strings.TrimSpace(headerRole); r != "" {
		return r
	}
	if r := strings.TrimSpace(defaultRole); r != "" {
		return r
	}
	return FallbackRole
}

// BuildFilteredRegistry constructs a new registry holding only the tools the
// role may see, sharing tool objects by reference with base. The base
// registry is never mutated.
func BuildFilteredRegistry(base *tools.Registry, role string, cfg RoleToolConfig) *tools.Registry {
	allowed := FilterToolsForRole(base.List(), role, cfg)
	return base.Clone(allowed)
}
