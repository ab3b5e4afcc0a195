// Package config loads and validates the tracking service configuration from
// a TOML file. A single global config is initialized at startup; tests load
// the checked-in trackd.conf from the project root.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Version is the supported config file format version.
const Version = "0.1.0"

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	TokenValidity    string `toml:"token_validity"`    // Validity window for issued identity tokens
	PasswordValidity string `toml:"password_validity"` // Validity window for passwords before forced change
	SigningKey       string `toml:"signing_key"`       // HMAC key for identity tokens
}

// GetTokenValidity returns the token validity as time.Duration.
func (a *AuthConfig) GetTokenValidity() (time.Duration, error) {
	return ParseDuration(a.TokenValidity)
}

// GetTokenValidityOrDefault returns the token validity as time.Duration or
// panics if the value is invalid.
func (a *AuthConfig) GetTokenValidityOrDefault() time.Duration {
	d, err := a.GetTokenValidity()
	if err != nil {
		panic(fmt.Sprintf("invalid token validity: %v", err))
	}
	return d
}

// GetPasswordValidity returns the password validity as time.Duration.
func (a *AuthConfig) GetPasswordValidity() (time.Duration, error) {
	return ParseDuration(a.PasswordValidity)
}

// GetPasswordValidityOrDefault returns the password validity as time.Duration
// or panics if the value is invalid.
func (a *AuthConfig) GetPasswordValidityOrDefault() time.Duration {
	d, err := a.GetPasswordValidity()
	if err != nil {
		panic(fmt.Sprintf("invalid password validity: %v", err))
	}
	return d
}

// ConfigParam holds all configuration parameters for the tracking service.
type ConfigParam struct {
	// Configuration version
	FormatVersion string `toml:"format_version"` // Version of this configuration file format

	// Server configuration
	ServerHostName     string `toml:"server_hostname"`       // Hostname for the server
	ServerPort         string `toml:"server_port"`           // Port for the API server
	HandleCORS         bool   `toml:"handle_cors"`           // Whether to handle CORS
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"` // Origins allowed when CORS handling is on
	MaxRequestBodySize int64  `toml:"max_request_body_size"` // Maximum size of request body in bytes
	RequestTimeout     string `toml:"request_timeout"`       // Per-request handling deadline

	// Auth configuration
	Auth AuthConfig `toml:"auth"`

	// Database configuration
	DB struct {
		Host     string `toml:"host"`     // Database host
		Port     int    `toml:"port"`     // Database port
		DBName   string `toml:"dbname"`   // Database name
		User     string `toml:"user"`     // Database user
		Password string `toml:"password"` // Database password
		SSLMode  string `toml:"sslmode"`  // SSL mode for database connection
	} `toml:"db"`
}

var cfg *ConfigParam

// Config returns the current configuration.
func Config() *ConfigParam {
	return cfg
}

// DSN returns the database connection string.
func (c *ConfigParam) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.DBName, c.DB.SSLMode)
}

// TrackerDSN returns the DSN for the tracking database.
func TrackerDSN() string {
	return cfg.DSN()
}

// GetRequestTimeout returns the per-request deadline, defaulting to 30s when
// unset.
func (c *ConfigParam) GetRequestTimeout() time.Duration {
	if c.RequestTimeout == "" {
		return 30 * time.Second
	}
	d, err := ParseDuration(c.RequestTimeout)
	if err != nil {
		panic(fmt.Sprintf("invalid request timeout: %v", err))
	}
	return d
}

// ParseDuration parses a duration string in the format "<number><unit>" where
// unit can be:
// - y: years
// - d: days
// - h: hours
// - m: minutes
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}

	var duration time.Duration
	switch unit {
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	case "h":
		duration = time.Duration(value) * time.Hour
	case "m":
		duration = time.Duration(value) * time.Minute
	case "y":
		// Assuming 1 year = 365 days for simplicity
		duration = time.Duration(value) * 365 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}

// ValidateConfig checks if all required configuration values are present and
// valid.
func ValidateConfig(cfg *ConfigParam) error {
	if cfg.FormatVersion != Version {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	if err := validateAuthConfig(cfg); err != nil {
		return err
	}
	if err := validateDBConfig(cfg); err != nil {
		return err
	}
	if cfg.RequestTimeout != "" {
		if _, err := ParseDuration(cfg.RequestTimeout); err != nil {
			return fmt.Errorf("invalid request_timeout: %v", err)
		}
	}
	return nil
}

func validateAuthConfig(cfg *ConfigParam) error {
	if cfg.Auth.TokenValidity == "" {
		return fmt.Errorf("auth.token_validity is required")
	}
	if _, err := ParseDuration(cfg.Auth.TokenValidity); err != nil {
		return fmt.Errorf("invalid auth.token_validity: %v", err)
	}
	if cfg.Auth.PasswordValidity == "" {
		return fmt.Errorf("auth.password_validity is required")
	}
	if _, err := ParseDuration(cfg.Auth.PasswordValidity); err != nil {
		return fmt.Errorf("invalid auth.password_validity: %v", err)
	}
	return nil
}

func validateDBConfig(cfg *ConfigParam) error {
	if cfg.DB.Host == "" {
		return fmt.Errorf("db.host is required")
	}
	if cfg.DB.Port <= 0 {
		return fmt.Errorf("db.port must be positive")
	}
	if cfg.DB.DBName == "" {
		return fmt.Errorf("db.dbname is required")
	}
	if cfg.DB.User == "" {
		return fmt.Errorf("db.user is required")
	}
	if cfg.DB.Password == "" {
		return fmt.Errorf("db.password is required")
	}
	if cfg.DB.SSLMode == "" {
		return fmt.Errorf("db.sslmode is required")
	}
	return nil
}

// LoadConfig loads configuration from a file.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	c := &ConfigParam{}
	if _, err := toml.Decode(string(content), c); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	// Environment overrides for secrets so they can stay out of the file.
	if v := os.Getenv("EVALFORGE_DB_PASSWORD"); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv("EVALFORGE_AUTH_SIGNING_KEY"); v != "" {
		c.Auth.SigningKey = v
	}

	if err := ValidateConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	// A signing key is required to issue tokens. Generate a fixed development
	// key only when none is configured; any non-eval deployment should set one.
	if c.Auth.SigningKey == "" {
		c.Auth.SigningKey = "trackd.evalforge.dev"
	}

	cfg = c
	return nil
}

var isTest = false

// IsTest reports whether the config was loaded via TestInit.
func IsTest() bool {
	return isTest
}

// TestInit loads the checked-in config from the project root for tests.
func TestInit() {
	isTest = true
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}
	if err := LoadConfig(filepath.Join(projectRoot, "trackd.conf")); err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}
}
