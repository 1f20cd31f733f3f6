package dbfixture

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// DefaultDSN is used when neither a config file nor DB_DSN names a database.
const DefaultDSN = "sqlite:memory"

// Environment variables read by ApplyEnv.
const (
	EnvDSN      = "DB_DSN"
	EnvUser     = "DB_USER"
	EnvPassword = "DB_PASSWD"
	EnvDebug    = "DB_DEBUG"
)

// Config describes how a Session connects and what the CLI runs around a load.
type Config struct {
	DSN        string      `toml:"dsn" validate:"required"`
	User       string      `toml:"user"`
	Password   string      `toml:"password"`
	Debug      bool        `toml:"debug"`
	Migrations string      `toml:"migrations"` // directory of goose SQL migrations
	Hooks      HooksConfig `toml:"hooks"`

	// Logger receives debug-mode statements and load progress. Nil means
	// slog.Default().
	Logger *slog.Logger `toml:"-"`

	// configDir is the directory containing the TOML file, used to resolve relative paths.
	configDir string
}

// HooksConfig lists SQL scripts run before and after a fixture load.
type HooksConfig struct {
	BeforeLoad []string `toml:"before_load" validate:"dive,required"`
	AfterLoad  []string `toml:"after_load" validate:"dive,required"`
}

// DefaultConfig returns a Config pointing at a private in-memory SQLite database.
func DefaultConfig() Config {
	return Config{DSN: DefaultDSN}
}

// ConfigFromEnv returns DefaultConfig with environment overrides applied.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a TOML config file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	cfg.DSN = strings.TrimSpace(cfg.DSN)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from DB_DSN, DB_USER, DB_PASSWD and DB_DEBUG.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvDSN); ok && strings.TrimSpace(v) != "" {
		c.DSN = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv(EnvUser); ok {
		c.User = v
	}
	if v, ok := os.LookupEnv(EnvPassword); ok {
		c.Password = v
	}
	if v, ok := os.LookupEnv(EnvDebug); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		c.Debug = b
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required fields and that the DSN names a registered dialect.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	dsn, err := ParseDSN(c.DSN)
	if err != nil {
		return err
	}
	if _, err := resolveDialect(dsn); err != nil {
		return err
	}
	return nil
}

// ResolvePath resolves a path relative to the config file directory.
func (c Config) ResolvePath(p string) string {
	if filepath.IsAbs(p) || c.configDir == "" {
		return p
	}
	return filepath.Join(c.configDir, p)
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
