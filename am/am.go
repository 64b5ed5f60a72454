package am

// Config represents the dashboard core configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" toml:"scheduler" json:"scheduler" yaml:"scheduler"`
	Server    ServerConfig    `mapstructure:"server" toml:"server" json:"server" yaml:"server"`
	Access    AccessConfig    `mapstructure:"access" toml:"access" json:"access" yaml:"access"`
}

// DatabaseConfig configures the SQLite document store
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
}

// SchedulerConfig configures the Pulse dispatcher and its trigger
type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`                   // Run the ticker inside `lpdash server`
	Cadence      string `mapstructure:"cadence" toml:"cadence" json:"cadence" yaml:"cadence"`                   // cron spec or descriptor (default: "@every 5m")
	BatchSize    int    `mapstructure:"batch_size" toml:"batch_size" json:"batch_size" yaml:"batch_size"`       // Due records per tick (default: 100)
	LeaseSeconds int    `mapstructure:"lease_seconds" toml:"lease_seconds" json:"lease_seconds" yaml:"lease_seconds"` // Claim lifetime before another tick may retry (default: 120)
	WorkerID     string `mapstructure:"worker_id" toml:"worker_id" json:"worker_id" yaml:"worker_id"`           // Lease owner; empty = hostname:pid:uuid
}

// ServerConfig configures the JSON API server
type ServerConfig struct {
	Port               *int     `mapstructure:"port" toml:"port" json:"port" yaml:"port"` // nil = DefaultServerPort, 0 is invalid
	AllowedOrigins     []string `mapstructure:"allowed_origins" toml:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
	IdentityHeader     string   `mapstructure:"identity_header" toml:"identity_header" json:"identity_header" yaml:"identity_header"`                               // Header set by the authenticating proxy
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute" toml:"rate_limit_per_minute" json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"` // Per identity; 0 = unlimited
	RateBurst          int      `mapstructure:"rate_burst" toml:"rate_burst" json:"rate_burst" yaml:"rate_burst"`
}

// AccessConfig is the permission table consulted by the access resolver.
// Grants are an array of tables because identities (emails) contain dots,
// which TOML and viper treat as key separators.
type AccessConfig struct {
	Version        string        `mapstructure:"version" toml:"version" json:"version" yaml:"version"` // semver; reloads may not move backwards
	DefaultRole    string        `mapstructure:"default_role" toml:"default_role" json:"default_role" yaml:"default_role"`
	TrustedDomains []string      `mapstructure:"trusted_domains" toml:"trusted_domains" json:"trusted_domains" yaml:"trusted_domains"` // email suffixes granted scope "all"
	Grants         []GrantConfig `mapstructure:"grants" toml:"grants" json:"grants" yaml:"grants"`
}

// GrantConfig is a single explicit permission entry
type GrantConfig struct {
	Identity string   `mapstructure:"identity" toml:"identity" json:"identity" yaml:"identity"`
	Role     string   `mapstructure:"role" toml:"role" json:"role" yaml:"role"`    // admin, editor, viewer
	Scope    string   `mapstructure:"scope" toml:"scope" json:"scope" yaml:"scope"` // all, specific, none
	Domains  []string `mapstructure:"domains" toml:"domains" json:"domains" yaml:"domains"`
}

// Server and file constants
const (
	DefaultServerPort      = 8787
	DefaultIdentityHeader  = "X-Authenticated-Email"
	DefaultDatabasePath    = "lpdash.db"
	DefaultCadence         = "@every 5m"
	DefaultBatchSize       = 100
	DefaultLeaseSeconds    = 120
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
