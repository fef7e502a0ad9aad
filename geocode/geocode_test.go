package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leandroluk/golem-admin/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNominatimGeocode(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "backoffice-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		switch r.URL.Query().Get("q") {
		case "Paris":
			_, _ = w.Write([]byte(`[{"lat":"48.8566","lon":"2.3522","display_name":"Paris"}]`))
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	t.Cleanup(server.Close)

	geocoder := NewNominatim("backoffice-test",
		WithEndpoint(server.URL),
		WithHTTPClient(server.Client()),
		WithRateLimit(rate.Inf, 1),
	)

	longitude, latitude, err := geocoder.Geocode(context.Background(), "Paris")
	require.NoError(t, err)
	assert.InDelta(t, 2.3522, longitude, 1e-9)
	assert.InDelta(t, 48.8566, latitude, 1e-9)

	_, _, err = geocoder.Geocode(context.Background(), "Atlantis")
	require.ErrorIs(t, err, ErrNoResult)
	require.ErrorIs(t, err, core.ErrPlaceNotFound)

	_, _, err = geocoder.Geocode(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.NotErrorIs(t, err, core.ErrPlaceNotFound)
}

func TestNominatimRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[{"lat":"48.8566","lon":"2.3522"}]`))
	}))
	t.Cleanup(server.Close)

	geocoder := NewNominatim("backoffice-test", WithEndpoint(server.URL), WithHTTPClient(server.Client()))

	_, _, err := geocoder.Geocode(context.Background(), "Paris")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _, err = geocoder.Geocode(ctx, "Paris")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestStaticGeocode(t *testing.T) {
	t.Parallel()

	geocoder := NewStatic(map[string]Point{"Paris": {Longitude: 2.35, Latitude: 48.85}})

	longitude, latitude, err := geocoder.Geocode(context.Background(), "  paris ")
	require.NoError(t, err)
	assert.Equal(t, 2.35, longitude)
	assert.Equal(t, 48.85, latitude)

	_, _, err = geocoder.Geocode(context.Background(), "Lyon")
	require.ErrorIs(t, err, ErrNoResult)
}
