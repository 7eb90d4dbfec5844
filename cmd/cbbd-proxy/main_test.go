package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/cbbd-client/internal/testutil"
	"github.com/Sternrassler/cbbd-client/pkg/cache"
	"github.com/spf13/viper"
)

// newTestProxy starts a proxy in front of a mock API.
func newTestProxy(t *testing.T) (*httptest.Server, *testutil.MockCBBD) {
	t.Helper()
	mock := testutil.NewMockCBBD()
	t.Cleanup(mock.Close)

	cfg := &proxyConfig{
		APIKey:          "test-key",
		BaseURL:         mock.URL(),
		UserAgent:       "cbbd-proxy-test/1.0",
		CacheEnabled:    true,
		CacheMaxEntries: 16,
		CacheTTL:        time.Minute,
	}
	c, err := newClient(cfg, nil)
	if err != nil {
		t.Fatalf("newClient() error = %v", err)
	}

	srv := httptest.NewServer(newRouter(c, nil, 5*time.Second))
	t.Cleanup(srv.Close)
	return srv, mock
}

func get(t *testing.T, method, url string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint_NoRedis(t *testing.T) {
	w := httptest.NewRecorder()
	readyHandler(nil)(w, httptest.NewRequest("GET", "/ready", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestTablesEndpoint(t *testing.T) {
	srv, mock := newTestProxy(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantLen    int
	}{
		{name: "games", path: "/v1/tables/games?season=2024", wantStatus: 200, wantLen: 2},
		{name: "roster", path: "/v1/tables/roster?team=Duke&season=2024", wantStatus: 200, wantLen: 2},
		{name: "plays", path: "/v1/tables/plays?gameId=1001", wantStatus: 200, wantLen: 3},
		{name: "team boxscores", path: "/v1/tables/team_boxscores?gameId=1001", wantStatus: 200, wantLen: 2},
		{name: "player boxscores", path: "/v1/tables/player_boxscores?gameId=1001", wantStatus: 200, wantLen: 3},
		{name: "type casing", path: "/v1/tables/Teams", wantStatus: 200, wantLen: 2},
		{name: "unknown table", path: "/v1/tables/scores", wantStatus: 404},
		{name: "bad number", path: "/v1/tables/games?season=abc", wantStatus: 400},
		{name: "invalid season", path: "/v1/tables/games?season=1800", wantStatus: 400},
		{name: "roster needs team", path: "/v1/tables/roster?season=2024", wantStatus: 400},
		{name: "generic has no endpoint", path: "/v1/tables/generic", wantStatus: 400},
		{name: "upstream not found", path: "/v1/tables/plays?gameId=9", wantStatus: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := get(t, "GET", srv.URL+tt.path)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", status, tt.wantStatus, body)
			}
			if tt.wantStatus != 200 {
				return
			}
			var records []map[string]any
			if err := json.Unmarshal([]byte(body), &records); err != nil {
				t.Fatalf("body is not a record array: %v", err)
			}
			if len(records) != tt.wantLen {
				t.Errorf("got %d records, want %d", len(records), tt.wantLen)
			}
		})
	}

	if q := mock.LastQuery(); q != nil && url.Values(q).Get("season") == "1800" {
		t.Error("invalid season reached the API")
	}
}

func TestSeasonGamesEndpoint(t *testing.T) {
	srv, mock := newTestProxy(t)

	status, body := get(t, "GET", srv.URL+"/v1/games?seasons=2023,2024")
	if status != 200 {
		t.Fatalf("status = %d, body %s", status, body)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Errorf("got %d records, want 4", len(records))
	}
	if got := mock.PathCount("/games"); got != 2 {
		t.Errorf("API saw %d requests, want 2", got)
	}

	if status, _ := get(t, "GET", srv.URL+"/v1/games"); status != 400 {
		t.Errorf("missing seasons status = %d, want 400", status)
	}
	if status, _ := get(t, "GET", srv.URL+"/v1/games?seasons=2024,x"); status != 400 {
		t.Errorf("bad seasons status = %d, want 400", status)
	}
}

func TestStandingsEndpoint(t *testing.T) {
	srv, _ := newTestProxy(t)

	status, body := get(t, "GET", srv.URL+"/v1/standings?season=2024&conference=ACC")
	if status != 200 {
		t.Fatalf("status = %d, body %s", status, body)
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(body), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["team"] != "Duke" {
		t.Errorf("leader = %v, want Duke", rows[0]["team"])
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing conference", "/v1/standings?season=2024"},
		{"bad season", "/v1/standings?season=x&conference=ACC"},
		{"invalid season", "/v1/standings?season=1800&conference=ACC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, body := get(t, "GET", srv.URL+tt.path); status != 400 {
				t.Errorf("status = %d, want 400 (body %s)", status, body)
			}
		})
	}
}

func TestCacheEndpoints(t *testing.T) {
	srv, mock := newTestProxy(t)

	get(t, "GET", srv.URL+"/v1/tables/games?season=2024")
	get(t, "GET", srv.URL+"/v1/tables/games?season=2024")
	if got := mock.PathCount("/games"); got != 1 {
		t.Errorf("API saw %d requests, want 1", got)
	}

	status, body := get(t, "GET", srv.URL+"/v1/cache/stats")
	if status != 200 {
		t.Fatalf("stats status = %d", status)
	}
	var stats cache.Stats
	if err := json.Unmarshal([]byte(body), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 || stats.Hits != 1 || !stats.Enabled {
		t.Errorf("stats = %+v, want 1 entry and 1 hit", stats)
	}

	if status, _ := get(t, "DELETE", srv.URL+"/v1/cache"); status != http.StatusNoContent {
		t.Errorf("clear status = %d, want 204", status)
	}

	get(t, "GET", srv.URL+"/v1/tables/games?season=2024")
	if got := mock.PathCount("/games"); got != 2 {
		t.Errorf("API saw %d requests after clear, want 2", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestProxy(t)
	get(t, "GET", srv.URL+"/v1/tables/games?season=2024")

	status, body := get(t, "GET", srv.URL+"/metrics")
	if status != 200 {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	for _, name := range []string{"cbbd_cache_misses_total", "cbbd_requests_total", "cbbd_normalize_records_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected metrics output to contain %s", name)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("CBBD_API_KEY", "secret")
	t.Setenv("CBBD_CACHE_TTL", "90s")
	t.Setenv("CBBD_CACHE_ENABLED", "false")
	t.Setenv("CBBD_PORT", "9090")

	cfg, err := loadConfig(viper.New())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.APIKey != "secret" || cfg.Port != "9090" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("CacheTTL = %v, want 90s", cfg.CacheTTL)
	}
	if cfg.CacheEnabled {
		t.Error("CacheEnabled = true, want false")
	}
	if cfg.CacheMaxEntries != 128 || cfg.BaseURL != "https://api.collegebasketballdata.com" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxy.yaml")
	if err := os.WriteFile(path, []byte("api_key: from-file\nlog_level: debug\ncache_max_entries: 8\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CBBD_CONFIG_FILE", path)

	cfg, err := loadConfig(viper.New())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.APIKey != "from-file" || cfg.LogLevel != "debug" || cfg.CacheMaxEntries != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing key", env: map[string]string{}, wantErr: "CBBD_API_KEY"},
		{name: "bad level", env: map[string]string{"CBBD_API_KEY": "k", "CBBD_LOG_LEVEL": "loud"}, wantErr: "unknown log level"},
		{name: "negative entries", env: map[string]string{"CBBD_API_KEY": "k", "CBBD_CACHE_MAX_ENTRIES": "-1"}, wantErr: "max entries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CBBD_API_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(viper.New())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("loadConfig() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewClient_OverridesFile(t *testing.T) {
	cfg := &proxyConfig{APIKey: "k", BaseURL: "http://localhost", OverridesFile: filepath.Join(t.TempDir(), "missing.yaml")}
	if _, err := newClient(cfg, nil); err == nil {
		t.Error("expected error for missing overrides file")
	}
}
