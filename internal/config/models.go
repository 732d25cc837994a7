package config

import "time"

// TopLevel namespaces the app config so files and env vars read naturally
// (taules.server.bind_address, TAULES_SERVER_BIND_ADDRESS).
type TopLevel struct {
	Taules Taules `json:"taules" mapstructure:"taules"`
}

type Taules struct {
	Server App `json:"server" mapstructure:"server"`
}

type App struct {
	BindAddress     string        `json:"bind_address" mapstructure:"bind_address"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	ApmClient       *ApmClient    `json:"apm,omitempty" mapstructure:"apm"`
	Auth            *Auth         `json:"auth,omitempty" mapstructure:"auth"`
	Logging         *Logging      `json:"logging,omitempty" mapstructure:"logging"`
	Storage         Storage       `json:"storage" mapstructure:"storage"`
	Defaults        TableDefaults `json:"defaults" mapstructure:"defaults"`
	Tables          []Table       `json:"tables" mapstructure:"tables"`
	Purge           Purge         `json:"purge" mapstructure:"purge"`
}

type Logging struct {
	Json  *bool   `json:"json,omitempty" mapstructure:"json"`
	File  *string `json:"file,omitempty" mapstructure:"file"`
	Level *string `json:"level,omitempty" mapstructure:"level"`
}

type ApmClient struct {
	Address     *string `json:"address,omitempty" mapstructure:"address"`
	SecretToken *string `json:"secret_token,omitempty" mapstructure:"secret_token"`
}

// Auth holds the authentication config for the API surface. Nil means the
// server answers anonymous callers only as far as table policies allow.
type Auth struct {
	JWT       *JWT       `json:"jwt,omitempty" mapstructure:"jwt"`
	BasicAuth []AuthUser `json:"basic_auth" mapstructure:"basic_auth"`
}

type JWT struct {
	// Secret is the HS256 signing secret.
	Secret   string  `json:"secret" mapstructure:"secret"`
	Issuer   *string `json:"issuer,omitempty" mapstructure:"issuer"`
	Audience *string `json:"audience,omitempty" mapstructure:"audience"`
}

// AuthUser is an API user; the password is stored as a bcrypt hash.
type AuthUser struct {
	Name         string `json:"name" mapstructure:"name"`
	PasswordHash string `json:"password_hash" mapstructure:"password_hash"`
}

// BasicAuthUser is a plaintext credential pair for talking to backing
// infrastructure.
type BasicAuthUser struct {
	Name     string `json:"name" mapstructure:"name"`
	Password string `json:"password" mapstructure:"password"`
}

type StorageBackend string

const (
	MemoryBackend        StorageBackend = "memory"
	BboltBackend         StorageBackend = "bbolt"
	PostgresBackend      StorageBackend = "postgres"
	ElasticsearchBackend StorageBackend = "elasticsearch"
)

type Storage struct {
	Backend       StorageBackend        `json:"backend" mapstructure:"backend"`
	Bbolt         *BboltStorage         `json:"bbolt,omitempty" mapstructure:"bbolt"`
	Postgres      *PostgresStorage      `json:"postgres,omitempty" mapstructure:"postgres"`
	Elasticsearch *ElasticsearchStorage `json:"elasticsearch,omitempty" mapstructure:"elasticsearch"`
}

type BboltStorage struct {
	Path string `json:"path" mapstructure:"path"`
}

type PostgresStorage struct {
	DSN string `json:"dsn" mapstructure:"dsn"`
}

type ElasticsearchClient struct {
	Addresses []string       `json:"addresses" mapstructure:"addresses"`
	User      *BasicAuthUser `json:"user,omitempty" mapstructure:"user"`
}

type ElasticsearchStorage struct {
	ElasticsearchClient `mapstructure:",squash"`
	// CasRetries is how often an unconditional write reruns its
	// read-check-write cycle after losing a concurrency race.
	CasRetries uint `json:"cas_retries" mapstructure:"cas_retries"`
	// MaxResultWindow bounds uncapped queries; it should match the
	// index-level setting of the same name.
	MaxResultWindow uint `json:"max_result_window" mapstructure:"max_result_window"`
}

type TableDefaults struct {
	PageSize    uint `json:"page_size" mapstructure:"page_size"`
	MaxPageSize uint `json:"max_page_size" mapstructure:"max_page_size"`
}

// Table declares one exposed table.
type Table struct {
	Name       string       `json:"name" mapstructure:"name"`
	SoftDelete bool         `json:"soft_delete" mapstructure:"soft_delete"`
	Policy     *TablePolicy `json:"policy,omitempty" mapstructure:"policy"`
	// PageSize and MaxPageSize override Defaults when set.
	PageSize    *uint `json:"page_size,omitempty" mapstructure:"page_size"`
	MaxPageSize *uint `json:"max_page_size,omitempty" mapstructure:"max_page_size"`
	// PurgeOlderThan is how long soft-deleted records stick around before
	// the purge job hard-removes them. Nil keeps them forever.
	PurgeOlderThan *time.Duration `json:"purge_older_than,omitempty" mapstructure:"purge_older_than"`
}

type TablePolicy struct {
	Kind string `json:"kind" mapstructure:"kind"`
	// OwnerField names the attribute that carries the owning user's id;
	// used by the personal and approval policy kinds.
	OwnerField string `json:"owner_field,omitempty" mapstructure:"owner_field"`
	// AllowAnonymousRead keeps reads open on the require_auth policy kind.
	AllowAnonymousRead bool `json:"allow_anonymous_read,omitempty" mapstructure:"allow_anonymous_read"`
	// FlagField names the boolean attribute that gates visibility for the
	// approval policy kind.
	FlagField string `json:"flag_field,omitempty" mapstructure:"flag_field"`
}

type Purge struct {
	RunInterval time.Duration `json:"run_interval" mapstructure:"run_interval"`
}
