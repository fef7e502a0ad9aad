// Package config loads the back-office configuration from an optional YAML
// file and BACKOFFICE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leandroluk/golem-admin/geocode"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
// server.per_page is read from BACKOFFICE_SERVER_PER_PAGE.
const EnvPrefix = "BACKOFFICE"

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config is the root configuration.
type Config struct {
	Catalog  string         `mapstructure:"catalog"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	PerPage int    `mapstructure:"per_page"`
	// PermittedIPs restricts access when non-empty.
	PermittedIPs []string `mapstructure:"permitted_ips"`
	// ClientIPHeader names the header holding the client address behind a proxy.
	ClientIPHeader string `mapstructure:"client_ip_header"`
	// TimeZone is used to read datetime filter values without an offset.
	TimeZone        string        `mapstructure:"time_zone"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Backend string `mapstructure:"backend"`
	URL     string `mapstructure:"url"`
	// Name is the default Mongo database, or the Postgres search_path.
	Name     string        `mapstructure:"name"`
	MaxConns int32         `mapstructure:"max_conns"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type GeocoderConfig struct {
	// Provider is nominatim, static or none.
	Provider  string                   `mapstructure:"provider"`
	Endpoint  string                   `mapstructure:"endpoint"`
	UserAgent string                   `mapstructure:"user_agent"`
	// RateLimit caps Nominatim requests per second.
	RateLimit float64                  `mapstructure:"rate_limit"`
	Places    map[string]geocode.Point `mapstructure:"places"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog", "catalog.yaml")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.per_page", 25)
	v.SetDefault("server.permitted_ips", []string{})
	v.SetDefault("server.client_ip_header", "")
	v.SetDefault("server.time_zone", "UTC")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.backend", BackendPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.max_conns", 0)
	v.SetDefault("database.timeout", 10*time.Second)
	v.SetDefault("geocoder.provider", "nominatim")
	v.SetDefault("geocoder.endpoint", geocode.DefaultNominatimURL)
	v.SetDefault("geocoder.user_agent", "golem-admin-backoffice")
	v.SetDefault("geocoder.rate_limit", 1.0)
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "json")
}

// Load reads path (when non-empty) and overlays the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot default.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Backend {
	case BackendPostgres, BackendMongo:
	default:
		errs = append(errs, fmt.Errorf("database.backend must be %s or %s, got %q", BackendPostgres, BackendMongo, c.Database.Backend))
	}
	if c.Server.PerPage <= 0 {
		errs = append(errs, fmt.Errorf("server.per_page must be positive, got %d", c.Server.PerPage))
	}
	if _, err := time.LoadLocation(c.Server.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("server.time_zone: %w", err))
	}
	switch c.Geocoder.Provider {
	case "nominatim", "static", "none":
	default:
		errs = append(errs, fmt.Errorf("geocoder.provider must be nominatim, static or none, got %q", c.Geocoder.Provider))
	}
	if c.Geocoder.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("geocoder.rate_limit must be positive, got %v", c.Geocoder.RateLimit))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	location, err := time.LoadLocation(c.Server.TimeZone)
	if err != nil {
		return time.UTC
	}
	return location
}
