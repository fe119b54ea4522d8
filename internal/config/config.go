// Package config loads service configuration.
//
// Precedence, lowest to highest: defaults, TOML file, environment, flags.
// Flags are applied by the CLI after Load returns.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Supported values.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Defaults.
const (
	DefaultAddr            = ":8000"
	DefaultDBPath          = "todos.db"
	DefaultDBHost          = "localhost"
	DefaultDBPort          = 5432
	DefaultSSLMode         = "disable"
	DefaultMaxOpenConns    = 10
	DefaultShutdownTimeout = 10 * time.Second
)

// Config is the full service configuration.
type Config struct {
	Addr            string        `toml:"addr" env:"TODOS_ADDR"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"TODOS_SHUTDOWN_TIMEOUT"`
	DB              DBConfig      `toml:"db"`
	Log             LogConfig     `toml:"log"`
}

// DBConfig selects and addresses the storage backend.
type DBConfig struct {
	Driver       string `toml:"driver" env:"DB_DRIVER"`
	Path         string `toml:"path" env:"DB_PATH"`
	Name         string `toml:"name" env:"DB_NAME"`
	User         string `toml:"user" env:"DB_USER"`
	Password     string `toml:"password" env:"DB_PASSWORD"`
	Host         string `toml:"host" env:"DB_HOST"`
	Port         int    `toml:"port" env:"DB_PORT"`
	SSLMode      string `toml:"sslmode" env:"DB_SSLMODE"`
	MaxOpenConns int    `toml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL"`
	Format string `toml:"format" env:"LOG_FORMAT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            DefaultAddr,
		ShutdownTimeout: DefaultShutdownTimeout,
		DB: DBConfig{
			Driver:       DriverSQLite,
			Path:         DefaultDBPath,
			Host:         DefaultDBHost,
			Port:         DefaultDBPort,
			SSLMode:      DefaultSSLMode,
			MaxOpenConns: DefaultMaxOpenConns,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

// Load layers the TOML file at path (if non-empty) and then the process
// environment over the defaults. The result is not validated; call Validate
// after applying flags.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Validate checks option values and driver requirements.
func (c Config) Validate() error {
	var errs []error

	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}

	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			errs = append(errs, errors.New("db.path is required for sqlite3"))
		}
	case DriverPostgres:
		if c.DB.Name == "" {
			errs = append(errs, errors.New("db.name (DB_NAME) is required for pgx"))
		}
		if c.DB.Host == "" {
			errs = append(errs, errors.New("db.host (DB_HOST) is required for pgx"))
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("db.port %d out of range", c.DB.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported db.driver %q: must be %s or %s", c.DB.Driver, DriverSQLite, DriverPostgres))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != LogFormatText && c.Log.Format != LogFormatJSON {
		errs = append(errs, fmt.Errorf("unsupported log.format %q: must be text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// DSN returns the data source name for the configured driver.
func (c Config) DSN() string {
	if c.DB.Driver != DriverPostgres {
		return c.DB.Path
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.DB.Host, strconv.Itoa(c.DB.Port)),
		Path:   "/" + c.DB.Name,
	}
	switch {
	case c.DB.User != "" && c.DB.Password != "":
		u.User = url.UserPassword(c.DB.User, c.DB.Password)
	case c.DB.User != "":
		u.User = url.User(c.DB.User)
	}
	q := url.Values{}
	if c.DB.SSLMode != "" {
		q.Set("sslmode", c.DB.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Redacted returns the DSN with any password masked, for logging.
func (c Config) Redacted() string {
	if c.DB.Driver != DriverPostgres {
		return c.DSN()
	}
	u, err := url.Parse(c.DSN())
	if err != nil {
		return "<invalid dsn>"
	}
	return u.Redacted()
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("unsupported log.level %q", l.Level)
	}
	return lvl, nil
}
