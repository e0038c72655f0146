package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/senja/pkg/tools"
)

func testRegistry(t *testing.T, names ...string) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	for _, name := range names {
		err := r.Register(tools.Tool{
			Name:        name,
			Description: "test tool " + name,
			InputSchema: map[string]interface{}{"type": "object"},
			Handler: func(ctx context.Context, input map[string]interface{}) (interface{}, error) {
				return "ok", nil
			},
		})
		require.NoError(t, err)
	}
	return r
}

func TestFilterToolsForRole(t *testing.T) {
	all := []string{"search", "fetch_url", "calc"}

	t.Run("should return everything when config is nil", func(t *testing.T) {
		got := FilterToolsForRole(all, "user", nil)
		assert.Equal(t, all, got)
	})

	t.Run("should return the role's subset in registry order", func(t *testing.T) {
		cfg := RoleToolConfig{"user": {"calc", "search"}}
		got := FilterToolsForRole(all, "user", cfg)
		assert.Equal(t, []string{"search", "calc"}, got)
	})

	t.Run("should expand the all sentinel", func(t *testing.T) {
		cfg := RoleToolConfig{"admin": {"all"}}
		got := FilterToolsForRole(all, "admin", cfg)
		assert.Equal(t, all, got)
	})

	t.Run("should fall back to the user entry for unknown roles", func(t *testing.T) {
		cfg := RoleToolConfig{"user": {"search"}}
		got := FilterToolsForRole(all, "analyst", cfg)
		assert.Equal(t, []string{"search"}, got)
	})

	t.Run("should fail open when neither the role nor user is configured", func(t *testing.T) {
		cfg := RoleToolConfig{"admin": {"all"}}
		got := FilterToolsForRole(all, "analyst", cfg)
		assert.Equal(t, all, got)
	})

	t.Run("should drop configured names that match no tool", func(t *testing.T) {
		cfg := RoleToolConfig{"user": {"search", "ghost"}}
		got := FilterToolsForRole(all, "user", cfg)
		assert.Equal(t, []string{"search"}, got)
	})

	t.Run("should return an empty set for an empty role entry", func(t *testing.T) {
		cfg := RoleToolConfig{"guest": {}}
		got := FilterToolsForRole(all, "guest", cfg)
		assert.Empty(t, got)
	})
}

func TestResolveRole(t *testing.T) {
	t.Run("should prefer the asserted role", func(t *testing.T) {
		assert.Equal(t, "admin", ResolveRole("admin", "analyst", "viewer"))
	})

	t.Run("should use the header role when no role is asserted", func(t *testing.T) {
		assert.Equal(t, "analyst", ResolveRole("", "analyst", "viewer"))
	})

	t.Run("should use the default when neither is present", func(t *testing.T) {
		assert.Equal(t, "viewer", ResolveRole("", "", "viewer"))
	})

	t.Run("should end at the user fallback", func(t *testing.T) {
		assert.Equal(t, "user", ResolveRole("", "", ""))
	})

	t.Run("should ignore whitespace-only values", func(t *testing.T) {
		assert.Equal(t, "analyst", ResolveRole("  ", "analyst", "viewer"))
	})
}

func TestBuildFilteredRegistry(t *testing.T) {
	t.Run("should hide tools outside the role's subset", func(t *testing.T) {
		base := testRegistry(t, "search", "fetch_url", "calc")
		cfg := RoleToolConfig{"user": {"search", "calc"}}

		filtered := BuildFilteredRegistry(base, "user", cfg)
		assert.Equal(t, []string{"search", "calc"}, filtered.List())

		res := filtered.Execute(context.Background(), "fetch_url", map[string]interface{}{}, time.Second)
		assert.False(t, res.Success)
		assert.Equal(t, "Tool not found: fetch_url", res.Error)
	})

	t.Run("should leave the base registry untouched", func(t *testing.T) {
		base := testRegistry(t, "search", "calc")
		cfg := RoleToolConfig{"user": {"search"}}

		_ = BuildFilteredRegistry(base, "user", cfg)
		assert.Equal(t, []string{"search", "calc"}, base.List())
	})

	t.Run("should pass everything through when rbac is disabled", func(t *testing.T) {
		base := testRegistry(t, "search", "calc")
		filtered := BuildFilteredRegistry(base, "anything", nil)
		assert.Equal(t, base.List(), filtered.List())
	})
}
