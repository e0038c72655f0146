package rbac

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AllToolsSentinel inside a role's list grants every registered tool.
const AllToolsSentinel = "all"

// FallbackRole is consulted when the resolved role has no config entry, and
// is the terminal default of role resolution.
const FallbackRole = "user"

// RoleToolConfig maps a role name to the tool names it may see. A nil config
// means RBAC is disabled and every tool is visible.
type RoleToolConfig map[string][]string

// ParseRoleToolConfig parses the raw role→tools JSON from the environment.
// A blank string disables RBAC (nil, nil). Anything that is not a flat object
// whose values are arrays of strings is a configuration error; callers treat
// it as fatal at startup so a broken config can never fail open per-request.
func ParseRoleToolConfig(raw string) (RoleToolConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("role tool config must be a JSON object: %w", err)
	}

	cfg := make(RoleToolConfig, len(probe))
	for role, rawList := range probe {
		var names []string
		if err := json.Unmarshal(rawList, &names); err != nil {
			return nil, fmt.Errorf("role %q must map to an array of tool names: %w", role, err)
		}
		cfg[role] = names
	}

	return cfg, nil
}

// Roles returns the configured role names. Used for log context only.
func (c RoleToolConfig) Roles() []string {
	if c == nil {
		return nil
	}
	roles := make([]string, 0, len(c))
	for role := range c {
		roles = append(roles, role)
	}
	return roles
}
