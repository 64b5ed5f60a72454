package am

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/robfig/cron/v3"

	"github.com/sharanvkt/insane-dashboard-v2/errors"
)

var (
	validRoles  = map[string]bool{"admin": true, "editor": true, "viewer": true}
	validScopes = map[string]bool{"all": true, "specific": true, "none": true}
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.Newf("server.port cannot be 0 (omit for default port %d)", DefaultServerPort)
	}
	if c.Server.Port != nil && (*c.Server.Port < 0 || *c.Server.Port > 65535) {
		return errors.Newf("server.port must be between 1 and 65535, got %d", *c.Server.Port)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return errors.Newf("server.rate_limit_per_minute must be >= 0, got %d", c.Server.RateLimitPerMinute)
	}
	if c.Server.RateBurst < 0 {
		return errors.Newf("server.rate_burst must be >= 0, got %d", c.Server.RateBurst)
	}

	if c.Scheduler.BatchSize < 0 {
		return errors.Newf("scheduler.batch_size must be >= 0, got %d", c.Scheduler.BatchSize)
	}
	if c.Scheduler.LeaseSeconds < 0 {
		return errors.Newf("scheduler.lease_seconds must be >= 0, got %d", c.Scheduler.LeaseSeconds)
	}
	if _, err := cron.ParseStandard(c.GetCadence()); err != nil {
		return errors.Wrapf(err, "scheduler.cadence %q is not a valid cron spec", c.GetCadence())
	}

	return c.Access.Validate()
}

// Validate checks the permission table section
func (a *AccessConfig) Validate() error {
	if a.Version != "" {
		if _, err := semver.NewVersion(a.Version); err != nil {
			return errors.Wrapf(err, "access.version %q is not a semantic version", a.Version)
		}
	}
	if a.DefaultRole != "" && !validRoles[a.DefaultRole] {
		return errors.Newf("access.default_role must be admin, editor or viewer, got %q", a.DefaultRole)
	}
	for _, suffix := range a.TrustedDomains {
		if strings.TrimSpace(suffix) == "" {
			return errors.New("access.trusted_domains cannot contain empty entries")
		}
	}

	seen := make(map[string]bool, len(a.Grants))
	for i, g := range a.Grants {
		identity := strings.ToLower(strings.TrimSpace(g.Identity))
		if identity == "" {
			return errors.Newf("access.grants[%d].identity cannot be empty", i)
		}
		if seen[identity] {
			return errors.Newf("access.grants[%d]: duplicate identity %q", i, identity)
		}
		seen[identity] = true

		if g.Role != "" && !validRoles[g.Role] {
			return errors.Newf("access.grants[%d].role must be admin, editor or viewer, got %q", i, g.Role)
		}
		if !validScopes[g.Scope] {
			return errors.Newf("access.grants[%d].scope must be all, specific or none, got %q", i, g.Scope)
		}
		if g.Scope == "specific" && len(g.Domains) == 0 {
			return errors.Newf("access.grants[%d]: scope \"specific\" requires at least one domain", i)
		}
	}
	return nil
}
