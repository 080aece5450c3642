package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Inbotiq Core.
// Configuration may come from an optional YAML file and is always overridable
// by environment variables.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Security SecurityConfig `yaml:"security"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// MaxBindAttempts caps how many consecutive ports are tried when the
	// base port is already in use. 0 means keep going until port 65535.
	MaxBindAttempts int `yaml:"max_bind_attempts"`

	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`

	// Strict disables the "allowed origin followed by /" prefix rule.
	Strict bool `yaml:"strict"`
}

// DatabaseConfig contains durable user store settings.
type DatabaseConfig struct {
	// DSN selects the backend: postgres:// or postgresql:// opens PostgreSQL,
	// anything else is treated as a SQLite file path (sqlite:// is stripped).
	DSN string `yaml:"dsn"`

	// WALMode and BusyTimeout (seconds) apply to SQLite only.
	WALMode     bool `yaml:"wal_mode"`
	BusyTimeout int  `yaml:"busy_timeout"`

	// MaxConns applies to PostgreSQL only.
	MaxConns int `yaml:"max_conns"`
}

// Database driver names returned by DatabaseConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Driver returns which store backend the DSN selects.
func (d DatabaseConfig) Driver() string {
	lower := strings.ToLower(d.DSN)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// SQLitePath returns the filesystem path for the SQLite backend.
func (d DatabaseConfig) SQLitePath() string {
	return strings.TrimPrefix(d.DSN, "sqlite://")
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT        JWTConfig        `yaml:"jwt"`
	Password   PasswordConfig   `yaml:"password"`
	Revocation RevocationConfig `yaml:"revocation"`
	Admin      AdminSeedConfig  `yaml:"admin"`
}

// JWTConfig contains session token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`

	// AccessTokenTTL is the token lifetime in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

// PasswordConfig contains Argon2id work factor and password policy settings.
type PasswordConfig struct {
	// Iterations is the Argon2id time cost (the tunable work factor).
	Iterations int `yaml:"iterations"`
	MemoryKiB  int `yaml:"memory_kib"`
	Threads    int `yaml:"threads"`
	MinLength  int `yaml:"min_length"`
}

// RevocationConfig controls the logout denylist.
type RevocationConfig struct {
	// PruneInterval is how often expired entries are dropped (seconds).
	PruneInterval int `yaml:"prune_interval"`

	// Persist writes revocations to the durable store so they survive restarts.
	Persist bool `yaml:"persist"`
}

// AdminSeedConfig describes an optional administrator created at startup.
type AdminSeedConfig struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Enabled reports whether an admin seed was configured.
func (a AdminSeedConfig) Enabled() bool {
	return a.Email != "" && a.Password != ""
}

// MQTTConfig contains MQTT broker connection settings for the auth event bus.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings for auth telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultAllowedOrigins is used when FRONTEND_URL is not set.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"https://inbotiq-assignment-two.vercel.app",
}

// envPrefix is accepted in front of every environment variable name and wins
// over the bare name when both are set.
const envPrefix = "INBOTIQ_"

// Load builds the configuration.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, when path is non-empty
//  3. Environment variables (override file values)
//
// Parameters:
//   - path: Path to a YAML configuration file, or "" for environment only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host:            "0.0.0.0",
			Port:            5001,
			MaxBindAttempts: 100,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			CORS: CORSConfig{
				AllowedOrigins: append([]string(nil), DefaultAllowedOrigins...),
			},
		},
		Database: DatabaseConfig{
			DSN:         "./data/inbotiq.db",
			WALMode:     true,
			BusyTimeout: 5,
			MaxConns:    10,
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 7 * 24 * 60,
			},
			Password: PasswordConfig{
				Iterations: 3,
				MemoryKiB:  64 * 1024,
				Threads:    1,
				MinLength:  6,
			},
			Revocation: RevocationConfig{
				PruneInterval: 300,
				Persist:       true,
			},
			Admin: AdminSeedConfig{
				Name: "Administrator",
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "inbotiq-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "inbotiq",
			Bucket:        "auth",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// lookupEnv returns the value of INBOTIQ_<name> or <name>, whichever is set
// first. Empty values count as unset.
func lookupEnv(name string) (string, bool) {
	if v := os.Getenv(envPrefix + name); v != "" {
		return v, true
	}
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	return "", false
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric or boolean values are collected and returned together.
func applyEnvOverrides(cfg *Config) error {
	var errs []string

	setString := func(name string, dst *string) {
		if v, ok := lookupEnv(name); ok {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v, ok := lookupEnv(name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s must be an integer", name))
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := lookupEnv(name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s must be a boolean", name))
				return
			}
			*dst = b
		}
	}

	// API
	setString("HOST", &cfg.API.Host)
	setInt("PORT", &cfg.API.Port)
	setInt("MAX_BIND_ATTEMPTS", &cfg.API.MaxBindAttempts)
	if v, ok := lookupEnv("FRONTEND_URL"); ok {
		cfg.API.CORS.AllowedOrigins = SplitOrigins(v)
	}
	setBool("CORS_STRICT", &cfg.API.CORS.Strict)

	// Database
	setString("DATABASE_URL", &cfg.Database.DSN)

	// Security - JWT secret (always override in production)
	setString("JWT_SECRET", &cfg.Security.JWT.Secret)
	if v, ok := lookupEnv("JWT_EXPIRES_IN"); ok {
		ttl, err := ParseTTL(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("JWT_EXPIRES_IN: %v", err))
		} else {
			cfg.Security.JWT.AccessTokenTTL = int(ttl / time.Minute)
		}
	}
	setInt("HASH_COST", &cfg.Security.Password.Iterations)
	setInt("HASH_MEMORY_KIB", &cfg.Security.Password.MemoryKiB)
	setInt("PASSWORD_MIN_LENGTH", &cfg.Security.Password.MinLength)
	setInt("REVOCATION_PRUNE_INTERVAL", &cfg.Security.Revocation.PruneInterval)
	setBool("REVOCATION_PERSIST", &cfg.Security.Revocation.Persist)
	setString("ADMIN_NAME", &cfg.Security.Admin.Name)
	setString("ADMIN_EMAIL", &cfg.Security.Admin.Email)
	setString("ADMIN_PASSWORD", &cfg.Security.Admin.Password)

	// MQTT
	setBool("MQTT_ENABLED", &cfg.MQTT.Enabled)
	setString("MQTT_HOST", &cfg.MQTT.Broker.Host)
	setInt("MQTT_PORT", &cfg.MQTT.Broker.Port)
	setString("MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	// InfluxDB
	setBool("INFLUXDB_ENABLED", &cfg.InfluxDB.Enabled)
	setString("INFLUXDB_URL", &cfg.InfluxDB.URL)
	setString("INFLUXDB_TOKEN", &cfg.InfluxDB.Token)
	setString("INFLUXDB_ORG", &cfg.InfluxDB.Org)
	setString("INFLUXDB_BUCKET", &cfg.InfluxDB.Bucket)

	// Logging
	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// SplitOrigins parses a comma-separated origin list, trimming whitespace and
// dropping empty entries.
func SplitOrigins(v string) []string {
	parts := strings.Split(v, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// ParseTTL parses a token lifetime. It accepts Go durations ("12h", "90m"),
// a day suffix ("7d") and bare integers, which are read as minutes.
func ParseTTL(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var ttl time.Duration
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", v)
		}
		ttl = time.Duration(n) * 24 * time.Hour
	} else if n, err := strconv.Atoi(v); err == nil {
		ttl = time.Duration(n) * time.Minute
	} else {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		ttl = d
	}

	if ttl < time.Minute {
		return 0, fmt.Errorf("duration %q must be at least one minute", v)
	}
	return ttl, nil
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.MaxBindAttempts < 0 {
		errs = append(errs, "api.max_bind_attempts must not be negative")
	}
	if len(c.API.CORS.AllowedOrigins) == 0 {
		errs = append(errs, "api.cors.allowed_origins must contain at least one origin")
	}

	// Database validation
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, "database.dsn is required (set DATABASE_URL)")
	}
	if c.Database.MaxConns < 0 || c.Database.MaxConns > 1000 {
		errs = append(errs, "database.max_conns must be between 0 and 1000")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Security validation - a short or missing secret lets anyone forge tokens.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}
	if c.Security.JWT.AccessTokenTTL < 1 {
		errs = append(errs, "security.jwt.access_token_ttl must be at least 1 minute")
	}

	pw := c.Security.Password
	if pw.Iterations < 1 || pw.Iterations > 10 {
		errs = append(errs, "security.password.iterations must be between 1 and 10")
	}
	if pw.MemoryKiB < 1024 {
		errs = append(errs, "security.password.memory_kib must be at least 1024")
	}
	if pw.Threads < 1 || pw.Threads > 255 {
		errs = append(errs, "security.password.threads must be between 1 and 255")
	}
	if pw.MinLength < 1 {
		errs = append(errs, "security.password.min_length must be at least 1")
	}
	if c.Security.Admin.Enabled() && len(c.Security.Admin.Password) < pw.MinLength {
		errs = append(errs, "security.admin.password is shorter than security.password.min_length")
	}

	if c.Security.Revocation.PruneInterval < 1 {
		errs = append(errs, "security.revocation.prune_interval must be at least 1 second")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTokenTTL returns the session token lifetime as a Duration.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
}

// GetPruneInterval returns the revocation prune interval as a Duration.
func (c *Config) GetPruneInterval() time.Duration {
	return time.Duration(c.Security.Revocation.PruneInterval) * time.Second
}
