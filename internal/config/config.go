package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains the settings for verifying bearer tokens against the
// external identity provider.
type AuthConfig struct {
	// Issuer is the expected "iss" claim, e.g. "https://tenant.auth0.com/".
	Issuer string `mapstructure:"issuer" validate:"required,url"`

	// Audience is the expected "aud" claim.
	Audience string `mapstructure:"audience" validate:"required"`

	// JWKSURL is the identity provider's JSON Web Key Set endpoint.
	JWKSURL string `mapstructure:"jwks_url" validate:"required,url"`

	// KeyCacheTTLMinutes bounds how long a fetched key set is served before
	// it is considered stale and refreshed lazily.
	KeyCacheTTLMinutes int `mapstructure:"key_cache_ttl_minutes" validate:"required,gt=0"`
}
