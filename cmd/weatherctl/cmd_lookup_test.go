package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/" && r.URL.Query().Get("scantext") != "":
			_, _ = w.Write([]byte(`{"match":[{"latt":"40.71000N","longt":"74.00600W","location":"New York"}]}`))
		case r.URL.Path == "/points/40.71000,74.00600":
			_, _ = w.Write([]byte(`{"forecast":"` + srv.URL + `/gridpoints/OKX/33,35/forecast"}`))
		case r.URL.Path == "/gridpoints/OKX/33,35/forecast":
			_, _ = w.Write([]byte(`{"periods":[{"shortForecast":"Partly Sunny"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	lookupFlags.configPath, lookupFlags.keyword, lookupFlags.verbose = "", "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLookup_PrintsLocationAndForecast(t *testing.T) {
	srv := newUpstream(t)
	t.Setenv("GEOCODE_BASE_URL", srv.URL)
	t.Setenv("WEATHER_BASE_URL", srv.URL)

	out, err := runCLI(t, "lookup", "what's the weather in New York?")
	require.NoError(t, err)
	require.Contains(t, out, "Location: New York")
	require.Contains(t, out, "Forecast: Partly Sunny")
}

func TestLookup_ConfigFileAndKeywordFlag(t *testing.T) {
	srv := newUpstream(t)
	path := filepath.Join(t.TempDir(), "weatherctl.yaml")
	cfg := "geocode_base_url: " + srv.URL + "\nweather_base_url: " + srv.URL + "\nkeyword: forecast\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	_, err := runCLI(t, "lookup", "--config", path, "weather in New York")
	require.Error(t, err)
	require.Contains(t, err.Error(), `"forecast"`)

	out, err := runCLI(t, "lookup", "--config", path, "--keyword", "weather", "weather in New York")
	require.NoError(t, err)
	require.Contains(t, out, "Forecast: Partly Sunny")
}

func TestLookup_GeocodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "throttled", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("GEOCODE_BASE_URL", srv.URL)

	out, err := runCLI(t, "lookup", "weather in Austin")
	require.Error(t, err)
	require.Contains(t, err.Error(), "could not be resolved")
	require.NotContains(t, out, "Location:")
}
