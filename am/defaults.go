package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.cadence", DefaultCadence)
	v.SetDefault("scheduler.batch_size", DefaultBatchSize)
	v.SetDefault("scheduler.lease_seconds", DefaultLeaseSeconds)
	v.SetDefault("scheduler.worker_id", "")

	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	})
	v.SetDefault("server.identity_header", DefaultIdentityHeader)
	v.SetDefault("server.rate_limit_per_minute", 120)
	v.SetDefault("server.rate_burst", 20)

	v.SetDefault("access.version", "1.0.0")
	v.SetDefault("access.default_role", "viewer")
	v.SetDefault("access.trusted_domains", []string{})
}

// BindEnvVars binds settings that are commonly overridden per deployment
func BindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.path", "LPDASH_DATABASE_PATH")
	_ = v.BindEnv("server.port", "LPDASH_SERVER_PORT")
	_ = v.BindEnv("scheduler.worker_id", "LPDASH_WORKER_ID")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// GetServerPort returns the configured port or DefaultServerPort
func (c *Config) GetServerPort() int {
	if c.Server.Port == nil {
		return DefaultServerPort
	}
	return *c.Server.Port
}

// GetIdentityHeader returns the header carrying the authenticated identity
func (c *Config) GetIdentityHeader() string {
	if c.Server.IdentityHeader == "" {
		return DefaultIdentityHeader
	}
	return c.Server.IdentityHeader
}

// GetCadence returns the scheduler trigger spec
func (c *Config) GetCadence() string {
	if c.Scheduler.Cadence == "" {
		return DefaultCadence
	}
	return c.Scheduler.Cadence
}

// GetBatchSize returns the per-tick batch bound
func (c *Config) GetBatchSize() int {
	if c.Scheduler.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.Scheduler.BatchSize
}

// GetLeaseSeconds returns the claim lifetime in seconds
func (c *Config) GetLeaseSeconds() int {
	if c.Scheduler.LeaseSeconds <= 0 {
		return DefaultLeaseSeconds
	}
	return c.Scheduler.LeaseSeconds
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Scheduler: {Cadence: %s, Batch: %d}, Access: {Version: %s, Grants: %d}}",
		c.GetDatabasePath(), c.GetCadence(), c.GetBatchSize(), c.Access.Version, len(c.Access.Grants))
}
