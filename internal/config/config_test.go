package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const fullYAML = `server:
  port: "9090"
air_quality_api:
  url: http://localhost:9999/v1/air-quality
  geocoding_url: http://localhost:9999/v1/search
  timeout: 3s
  min_interval: 250ms
request:
  timeout: 8s
cache:
  backend: redis
  ttl: 10m
  redis:
    addr: redis.internal:6379
    db: 2
reliability:
  rate_limit_rps: 50
  rate_limit_burst: 120
batch:
  workers: 4
  max_locations: 20
  coalesce: false
warming:
  interval: 10m
  locations:
    - lat: 47.6062
      lon: -122.3321
    - lat: 40.7128
      lon: -74.0060
shutdown:
  timeout: 10s
`

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ENV_NAME", "PORT", "CACHE_BACKEND", "MEMCACHED_ADDRS", "REDIS_ADDR", "REDIS_PASSWORD"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// TestLoad_Defaults verifies the service runs on defaults when no config
// file exists; the upstream APIs need no credentials.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.AirQualityAPIURL != "https://air-quality-api.open-meteo.com/v1/air-quality" {
		t.Errorf("AirQualityAPIURL = %q", cfg.AirQualityAPIURL)
	}
	if cfg.GeocodingAPIURL != "https://geocoding-api.open-meteo.com/v1/search" {
		t.Errorf("GeocodingAPIURL = %q", cfg.GeocodingAPIURL)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q, want in_memory", cfg.CacheBackend)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if !cfg.CoalesceRequests {
		t.Error("CoalesceRequests = false, want true by default")
	}
	if cfg.BatchWorkers != 8 || cfg.MaxBatchLocations != 50 {
		t.Errorf("batch defaults = %d workers / %d locations", cfg.BatchWorkers, cfg.MaxBatchLocations)
	}
}

// TestLoad_FullFile verifies every section of the YAML file is honored.
func TestLoad_FullFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, fullYAML)
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.AirQualityAPIURL != "http://localhost:9999/v1/air-quality" {
		t.Errorf("AirQualityAPIURL = %q", cfg.AirQualityAPIURL)
	}
	if cfg.UpstreamTimeout != 3*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 3s", cfg.UpstreamTimeout)
	}
	if cfg.UpstreamMinInterval != 250*time.Millisecond {
		t.Errorf("UpstreamMinInterval = %v, want 250ms", cfg.UpstreamMinInterval)
	}
	if cfg.CacheBackend != "redis" || cfg.RedisAddr != "redis.internal:6379" || cfg.RedisDB != 2 {
		t.Errorf("redis config = %q/%q/%d", cfg.CacheBackend, cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v, want 10m", cfg.CacheTTL)
	}
	if cfg.RateLimitRPS != 50 || cfg.RateLimitBurst != 120 {
		t.Errorf("rate limit = %d/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.BatchWorkers != 4 || cfg.MaxBatchLocations != 20 {
		t.Errorf("batch = %d workers / %d locations", cfg.BatchWorkers, cfg.MaxBatchLocations)
	}
	if cfg.CoalesceRequests {
		t.Error("CoalesceRequests = true, want false from file")
	}
	if len(cfg.WarmLocations) != 2 {
		t.Fatalf("len(WarmLocations) = %d, want 2", len(cfg.WarmLocations))
	}
	if cfg.WarmLocations[0].Latitude != 47.6062 {
		t.Errorf("WarmLocations[0].Latitude = %v", cfg.WarmLocations[0].Latitude)
	}
	if cfg.WarmInterval != 10*time.Minute {
		t.Errorf("WarmInterval = %v, want 10m", cfg.WarmInterval)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

// TestLoad_EnvOverrides verifies env vars win over file values.
func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, fullYAML)
	chdir(t, dir)
	t.Setenv("PORT", "7070")
	t.Setenv("CACHE_BACKEND", "memcached")
	t.Setenv("MEMCACHED_ADDRS", "mc1:11211,mc2:11211")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "7070" {
		t.Errorf("ServerPort = %q, want env override 7070", cfg.ServerPort)
	}
	if cfg.CacheBackend != "memcached" {
		t.Errorf("CacheBackend = %q, want memcached", cfg.CacheBackend)
	}
	if cfg.MemcachedAddrs != "mc1:11211,mc2:11211" {
		t.Errorf("MemcachedAddrs = %q", cfg.MemcachedAddrs)
	}
}

// TestLoad_InvalidBackend verifies unknown cache backends are rejected.
func TestLoad_InvalidBackend(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("CACHE_BACKEND", "couchbase")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want invalid backend error")
	}
}

// TestLoad_BadWarmLocation verifies out-of-range warm coordinates fail fast.
func TestLoad_BadWarmLocation(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "warming:\n  locations:\n    - lat: 95.0\n      lon: 0.0\n")
	chdir(t, dir)

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want warm location error")
	}
}

// TestLoad_RequestTimeoutAdjusted verifies the request timeout always leaves
// room for one upstream call.
func TestLoad_RequestTimeoutAdjusted(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeConfigFile(t, dir, "air_quality_api:\n  timeout: 10s\nrequest:\n  timeout: 2s\n")
	chdir(t, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout <= cfg.UpstreamTimeout {
		t.Errorf("RequestTimeout = %v not adjusted above UpstreamTimeout = %v",
			cfg.RequestTimeout, cfg.UpstreamTimeout)
	}
}
