package access

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sharanvkt/insane-dashboard-v2/am"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

func sampleAccess() am.AccessConfig {
	return am.AccessConfig{
		Version:        "1.0.0",
		DefaultRole:    "viewer",
		TrustedDomains: []string{"@Agency.io"},
		Grants: []am.GrantConfig{
			{Identity: "admin@client.com", Role: "admin", Scope: "all"},
			{Identity: "Editor@Client.com", Role: "editor", Scope: "specific", Domains: []string{"A"}},
			{Identity: "blocked@agency.io", Role: "viewer", Scope: "none"},
		},
	}
}

func TestCanAccess_SpecificScope(t *testing.T) {
	table := MustTable(sampleAccess())

	assert.True(t, table.CanAccess("editor@client.com", "A"))
	assert.False(t, table.CanAccess("editor@client.com", "B"))
}

func TestResolve(t *testing.T) {
	table := MustTable(sampleAccess())

	tests := []struct {
		name     string
		identity string
		scope    Scope
		role     Role
		source   string
	}{
		{"explicit all", "admin@client.com", ScopeAll, RoleAdmin, "grant"},
		{"case and whitespace are ignored", "  EDITOR@client.COM ", ScopeSpecific, RoleEditor, "grant"},
		{"trusted suffix", "someone@agency.io", ScopeAll, RoleEditor, "trusted_domain"},
		{"trusted suffix ignores case", " Someone@AGENCY.IO", ScopeAll, RoleEditor, "trusted_domain"},
		{"explicit grant beats trusted suffix", "blocked@agency.io", ScopeNone, RoleViewer, "grant"},
		{"lookalike suffix is not trusted", "someone@notagency.io", ScopeNone, RoleViewer, "default"},
		{"unknown identity", "stranger@else.com", ScopeNone, RoleViewer, "default"},
		{"empty identity", "", ScopeNone, RoleViewer, "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := table.Resolve(tt.identity)
			assert.Equal(t, tt.scope, res.Scope)
			assert.Equal(t, tt.role, res.Role)
			assert.Equal(t, tt.source, res.Source)
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	table := MustTable(sampleAccess())
	first := table.Resolve("editor@client.com")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, table.Resolve("editor@client.com"))
	}
	assert.Equal(t, []string{"A"}, first.DomainList())
}

func TestAllows(t *testing.T) {
	assert.True(t, Resolution{Scope: ScopeAll}.Allows("anything"))
	assert.False(t, Resolution{Scope: ScopeNone}.Allows("anything"))
	assert.False(t, Resolution{Scope: ScopeSpecific}.Allows("A"), "nil domain set allows nothing")
	assert.True(t, Resolution{Scope: ScopeSpecific, Domains: map[string]struct{}{"A": {}}}.Allows(" A "))
}

func TestNewTable_RejectsInvalid(t *testing.T) {
	cfg := sampleAccess()
	cfg.Grants = append(cfg.Grants, am.GrantConfig{Identity: "x@y.com", Scope: "most"})

	_, err := NewTable(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid access configuration")
}

func TestNewTable_DefaultVersion(t *testing.T) {
	table, err := NewTable(am.AccessConfig{})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", table.Version())
	assert.Equal(t, ScopeNone, table.Resolve("a@b.com").Scope)
}

func TestResolver_Swap(t *testing.T) {
	resolver := NewResolver(MustTable(sampleAccess()), zaptest.NewLogger(t).Sugar())
	assert.False(t, resolver.CanAccess("editor@client.com", "B"))

	next := sampleAccess()
	next.Version = "1.1.0"
	next.Grants[1].Domains = []string{"A", "B"}
	require.NoError(t, resolver.Swap(MustTable(next)))

	assert.Equal(t, "1.1.0", resolver.Version())
	assert.True(t, resolver.CanAccess("editor@client.com", "B"))

	older := sampleAccess()
	older.Version = "0.9.0"
	err := resolver.Swap(MustTable(older))
	assert.True(t, errors.Is(err, ErrStaleTable))
	assert.Equal(t, "1.1.0", resolver.Version())
}

func TestResolver_Reload(t *testing.T) {
	resolver := NewResolver(MustTable(sampleAccess()), nil)

	cfg := &am.Config{Access: sampleAccess()}
	cfg.Access.Version = "2.0.0"
	cfg.Access.Grants = nil
	require.NoError(t, resolver.Reload(cfg))
	assert.False(t, resolver.CanAccess("admin@client.com", "A"))

	bad := &am.Config{Access: am.AccessConfig{Version: "3.0.0", DefaultRole: "root"}}
	assert.Error(t, resolver.Reload(bad))
	assert.Equal(t, "2.0.0", resolver.Version())
}

func TestResolver_ConcurrentLookupsDuringSwap(t *testing.T) {
	resolver := NewResolver(MustTable(sampleAccess()), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				// admin keeps scope all in every version swapped below
				assert.True(t, resolver.CanAccess("admin@client.com", "Z"))
			}
		}()
	}
	for v := 1; v <= 20; v++ {
		cfg := sampleAccess()
		cfg.Version = "1." + strconv.Itoa(v) + ".0"
		require.NoError(t, resolver.Swap(MustTable(cfg)))
	}
	wg.Wait()
}
