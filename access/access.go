// Package access resolves caller identities to domain access scopes.
//
// A Table is an immutable, versioned snapshot of the permission configuration.
// Lookups are pure functions of (identity, table): there is no error path and
// an unknown identity degrades to the default role with scope "none".
// Resolver holds the table currently in force and swaps it atomically when the
// configuration is reloaded.
package access

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/sharanvkt/insane-dashboard-v2/am"
	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/internal/util"
)

// Scope is the breadth of domain access granted to an identity.
type Scope string

const (
	ScopeNone     Scope = "none"
	ScopeSpecific Scope = "specific"
	ScopeAll      Scope = "all"
)

// Role is carried for display; access decisions depend on Scope only.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Resolution is the outcome of resolving one identity.
type Resolution struct {
	Role    Role                `json:"role"`
	Scope   Scope               `json:"scope"`
	Domains map[string]struct{} `json:"-"`
	// Source is "grant", "trusted_domain" or "default".
	Source string `json:"source"`
}

// Allows reports whether the resolution covers domainName.
func (r Resolution) Allows(domainName string) bool {
	switch r.Scope {
	case ScopeAll:
		return true
	case ScopeSpecific:
		_, ok := r.Domains[strings.TrimSpace(domainName)]
		return ok
	default:
		return false
	}
}

// DomainList returns the specific domain names in sorted order.
func (r Resolution) DomainList() []string {
	names := make([]string, 0, len(r.Domains))
	for name := range r.Domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table is an immutable permission configuration.
type Table struct {
	version       *semver.Version
	defaultRole   Role
	trustedSuffix []string
	grants        map[string]Resolution
}

// NewTable builds a table from the [access] config section.
func NewTable(cfg am.AccessConfig) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid access configuration")
	}

	version := cfg.Version
	if version == "" {
		version = "0.0.0"
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, errors.Wrapf(err, "access.version %q", version)
	}

	t := &Table{
		version:     v,
		defaultRole: RoleViewer,
		grants:      make(map[string]Resolution, len(cfg.Grants)),
	}
	if cfg.DefaultRole != "" {
		t.defaultRole = Role(cfg.DefaultRole)
	}

	for _, suffix := range cfg.TrustedDomains {
		s := strings.TrimPrefix(util.NormalizeIdentity(suffix), "@")
		t.trustedSuffix = append(t.trustedSuffix, "@"+s)
	}

	for _, g := range cfg.Grants {
		res := Resolution{
			Role:   Role(g.Role),
			Scope:  Scope(g.Scope),
			Source: "grant",
		}
		if res.Role == "" {
			res.Role = t.defaultRole
		}
		if res.Scope == ScopeSpecific {
			res.Domains = make(map[string]struct{}, len(g.Domains))
			for _, d := range g.Domains {
				res.Domains[strings.TrimSpace(d)] = struct{}{}
			}
		}
		t.grants[util.NormalizeIdentity(g.Identity)] = res
	}

	return t, nil
}

// MustTable is NewTable for static tables in tests and examples.
func MustTable(cfg am.AccessConfig) *Table {
	t, err := NewTable(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// Version returns the table version.
func (t *Table) Version() string {
	return t.version.String()
}

// Resolve maps an identity to its scope. Explicit grants win over trusted
// domain suffixes; anything else gets the default role with no access.
func (t *Table) Resolve(identity string) Resolution {
	id := util.NormalizeIdentity(identity)
	if id == "" {
		return Resolution{Role: t.defaultRole, Scope: ScopeNone, Source: "default"}
	}
	if res, ok := t.grants[id]; ok {
		return res
	}
	for _, suffix := range t.trustedSuffix {
		if util.HasSuffixFold(id, suffix) && len(id) > len(suffix) {
			return Resolution{Role: RoleEditor, Scope: ScopeAll, Source: "trusted_domain"}
		}
	}
	return Resolution{Role: t.defaultRole, Scope: ScopeNone, Source: "default"}
}

// CanAccess reports whether identity may read and modify domainName.
func (t *Table) CanAccess(identity, domainName string) bool {
	return t.Resolve(identity).Allows(domainName)
}
