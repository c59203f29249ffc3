// Package config loads mngr's YAML configuration file.
//
// String settings may reference environment variables as ${VAR} or
// ${VAR:-default}. A .env file in the working directory is loaded first;
// variables already set in the environment win.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"github.com/koustreak/mngr/internal/catalog"
	"github.com/koustreak/mngr/internal/database"
	"github.com/koustreak/mngr/internal/errs"
	"github.com/koustreak/mngr/internal/logger"
	"go.yaml.in/yaml/v3"
)

// Config is the whole configuration file.
type Config struct {
	Database database.Config         `yaml:"database"`
	Scope    catalog.Scope           `yaml:"scope"`
	Tables   []catalog.TableOverride `yaml:"tables"`
	Server   ServerConfig            `yaml:"server"`
	Log      logger.Config           `yaml:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	PageSize        int           `yaml:"page_size"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the configuration used for every key the file omits.
// The DSN and the scope have no defaults.
func Default() *Config {
	db := database.DefaultConfig("")
	log := logger.DefaultConfig()
	log.Output = nil

	return &Config{
		Database: *db,
		Server: ServerConfig{
			Addr:            ":8080",
			PageSize:        50,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: *log,
	}
}

// Load reads, expands and validates the file at path.
func Load(path string) (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfiguration, fmt.Sprintf("cannot read config file %s", path), err)
	}

	return Parse(data)
}

// Parse decodes a configuration document over the defaults, then expands
// environment references and validates the result. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errs.Wrap(errs.ErrKindConfiguration, "invalid config", err)
	}

	cfg.expand()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that would keep mngr from starting.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errs.New(errs.ErrKindConfiguration, "database.dsn is required")
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		return errs.Newf(errs.ErrKindConfiguration,
			"database.min_conns (%d) exceeds database.max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}
	if err := c.Scope.Validate(); err != nil {
		return err
	}
	for i, t := range c.Tables {
		if t.Table == "" {
			return errs.Newf(errs.ErrKindConfiguration, "tables[%d]: table is required", i)
		}
	}
	if c.Server.PageSize <= 0 {
		return errs.Newf(errs.ErrKindConfiguration, "server.page_size must be positive, got %d", c.Server.PageSize)
	}
	return nil
}

// DatabaseConfig returns the connection settings for the database driver.
func (c *Config) DatabaseConfig() *database.Config {
	db := c.Database
	return &db
}

// LoadOptions returns what the catalog loader makes visible.
func (c *Config) LoadOptions() catalog.LoadOptions {
	return catalog.LoadOptions{Scope: c.Scope, Tables: c.Tables}
}

// LoggerConfig returns the logging settings with output on stdout.
func (c *Config) LoggerConfig() *logger.Config {
	l := c.Log
	if l.Output == nil {
		l.Output = os.Stdout
	}
	return &l
}

func (c *Config) expand() {
	c.Database.DSN = expandEnv(c.Database.DSN)
	c.Database.ApplicationName = expandEnv(c.Database.ApplicationName)
	c.Server.Addr = expandEnv(c.Server.Addr)
	c.Log.Level = expandEnv(c.Log.Level)
	for i := range c.Tables {
		c.Tables[i].Description = expandEnv(c.Tables[i].Description)
	}
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnv replaces ${VAR} and ${VAR:-default}. A bare $ is left alone so
// passwords containing it survive.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v, ok := os.LookupEnv(m[1]); ok && v != "" {
			return v
		}
		return m[2]
	})
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errs.Wrap(errs.ErrKindConfiguration, fmt.Sprintf("cannot load %s", path), err)
	}
	return nil
}
