package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage" validate:"required"`
	Extraction ExtractionConfig `mapstructure:"extraction" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json console"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=2"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// StorageConfig controls where uploaded document bytes are kept.
type StorageConfig struct {
	RootDir        string `mapstructure:"root_dir" validate:"required"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" validate:"required,gt=0"`
}

// ExtractionConfig controls the background text-extraction pipeline.
type ExtractionConfig struct {
	// TikaURL points at an Apache Tika server used for formats without a
	// built-in extractor. Empty disables the fallback.
	TikaURL string `mapstructure:"tika_url" validate:"omitempty,url"`

	// MaxDocumentBytes caps how much of a stored file an extractor reads.
	MaxDocumentBytes int64 `mapstructure:"max_document_bytes" validate:"required,gt=0"`

	// JobTimeoutSeconds bounds the I/O of a single job. Zero means no limit.
	JobTimeoutSeconds int `mapstructure:"job_timeout_seconds" validate:"gte=0"`

	// RecoverOnStart re-enqueues sources left pending by a previous process.
	RecoverOnStart bool `mapstructure:"recover_on_start"`
}
