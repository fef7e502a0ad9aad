package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leandroluk/golem-admin/geocode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 25, cfg.Server.PerPage)
	assert.Empty(t, cfg.Server.PermittedIPs)
	assert.Equal(t, BackendPostgres, cfg.Database.Backend)
	assert.Equal(t, 10*time.Second, cfg.Database.Timeout)
	assert.Equal(t, "nominatim", cfg.Geocoder.Provider)
	assert.Equal(t, 1.0, cfg.Geocoder.RateLimit)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backoffice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog: models.yaml
server:
  per_page: 50
  permitted_ips: ["10.0.0.1"]
database:
  backend: mongo
  url: mongodb://localhost:27017
  name: shop
geocoder:
  provider: static
  places:
    paris: {longitude: 2.35, latitude: 48.85}
`), 0o600))

	t.Setenv("BACKOFFICE_SERVER_PER_PAGE", "10")
	t.Setenv("BACKOFFICE_SERVER_CLIENT_IP_HEADER", "X-Forwarded-For")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "models.yaml", cfg.Catalog)
	assert.Equal(t, 10, cfg.Server.PerPage)
	assert.Equal(t, "X-Forwarded-For", cfg.Server.ClientIPHeader)
	assert.Equal(t, []string{"10.0.0.1"}, cfg.Server.PermittedIPs)
	assert.Equal(t, BackendMongo, cfg.Database.Backend)
	assert.Equal(t, "shop", cfg.Database.Name)
	assert.Equal(t, map[string]geocode.Point{"paris": {Longitude: 2.35, Latitude: 48.85}}, cfg.Geocoder.Places)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Server:   ServerConfig{PerPage: 0, TimeZone: "Nowhere/Atlantis"},
		Database: DatabaseConfig{Backend: "sqlite"},
		Geocoder: GeocoderConfig{Provider: "google"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.backend")
	assert.Contains(t, err.Error(), "server.per_page")
	assert.Contains(t, err.Error(), "server.time_zone")
	assert.Contains(t, err.Error(), "geocoder.provider")
	assert.Contains(t, err.Error(), "geocoder.rate_limit")
}
