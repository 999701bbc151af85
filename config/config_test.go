package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/zerr"

	"github.com/jonwraymond/fanadmin/config"
	"github.com/jonwraymond/fanadmin/httpclient"
	"github.com/jonwraymond/fanadmin/secret"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)

	assert.Equal(t, httpclient.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 10, cfg.API.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.Cache.StaleTime)
	assert.Equal(t, 10*time.Minute, cfg.Cache.GCTime)
	assert.Equal(t, 300*time.Millisecond, cfg.Search.Debounce)
	assert.NotEmpty(t, cfg.Session.Dir)
	assert.NotEmpty(t, cfg.Session.RuntimeDir)
}

func TestLoad_RequiredFileMissing(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_ParsesFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://staging.example.test/api/v1
  timeout: 5s
  page_size: 25
session:
  dir: /var/lib/fanadmin
  redis:
    addr: localhost:6379
    ttl: 12h
cache:
  stale_time: 1m
  retry:
    attempts: 3
    initial_delay: 250ms
search:
  debounce: 150ms
log:
  level: debug
observe:
  metrics:
    enabled: true
    exporter: prometheus
`)
	cfg, err := config.Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "https://staging.example.test/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 25, cfg.API.PageSize)
	assert.Equal(t, "/var/lib/fanadmin", cfg.Session.Dir)
	assert.Equal(t, "localhost:6379", cfg.Session.Redis.Addr)
	assert.Equal(t, 12*time.Hour, cfg.Session.Redis.TTL)
	assert.Equal(t, "fanadmin:session:", cfg.Session.Redis.Prefix)
	assert.Equal(t, time.Minute, cfg.Cache.StaleTime)
	assert.Equal(t, 10*time.Minute, cfg.Cache.GCTime, "unset keys keep their defaults")
	assert.Equal(t, 150*time.Millisecond, cfg.Search.Debounce)

	policy := cfg.CachePolicy()
	assert.Equal(t, time.Minute, policy.StaleTime)
	assert.Equal(t, 3, policy.Retry.Attempts)
	assert.Equal(t, 250*time.Millisecond, policy.Retry.InitialDelay)
	require.NotNil(t, policy.Retry.RetryIf)
	assert.True(t, policy.Retry.RetryIf(&httpclient.APIError{StatusCode: 503}))
	assert.False(t, policy.Retry.RetryIf(&httpclient.APIError{StatusCode: 404}))

	oc := cfg.ObserveConfig("1.2.3")
	assert.Equal(t, "fanadmin", oc.ServiceName)
	assert.Equal(t, "1.2.3", oc.Version)
	assert.True(t, oc.Metrics.Enabled)
	assert.Equal(t, "debug", oc.Logging.Level)
}

func TestCachePolicy_NoRetryByDefault(t *testing.T) {
	policy := config.Default().CachePolicy()
	assert.Zero(t, policy.Retry.Attempts)
	assert.Nil(t, policy.Retry.RetryIf)
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default().API, cfg.API)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := config.Parse([]byte("api:\n  base_uri: https://x.test\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad url", "api:\n  base_url: ftp://x.test\n", "api.base_url"},
		{"negative timeout", "api:\n  timeout: -1s\n", "api.timeout"},
		{"negative page size", "api:\n  page_size: -3\n", "api.page_size"},
		{"bad exporter", "observe:\n  metrics:\n    enabled: true\n    exporter: carrier-pigeon\n", "invalid observe settings"},
		{"bad level", "log:\n  level: loud\n", "invalid observe settings"},
		{"negative retry", "cache:\n  retry:\n    attempts: -1\n", "cache.retry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.content))
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParse_ErrorMetadata(t *testing.T) {
	_, err := config.Parse([]byte("api:\n  base_url: ftp://x.test\n"))
	require.Error(t, err)

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr), "expected *zerr.Error, got %T", err)
	assert.Equal(t, "ftp://x.test", zErr.Metadata()["base_url"])
}

func TestResolve_SecretsAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pw"), []byte("s3cret\n"), 0o600))
	t.Setenv("FANADMIN_TEST_HOST", "api.internal.test")
	t.Setenv("FANADMIN_TEST_EMAIL", "ops@fanatix.test")

	cfg, err := config.Parse([]byte(`
api:
  base_url: https://${FANADMIN_TEST_HOST}/api/v1
login:
  email: secretref:env:FANADMIN_TEST_EMAIL
  password: secretref:file:pw
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Resolve(context.Background(), secret.Default(dir)))

	assert.Equal(t, "https://api.internal.test/api/v1", cfg.API.BaseURL)
	assert.Equal(t, "ops@fanatix.test", cfg.Login.Email)
	assert.Equal(t, "s3cret", cfg.Login.Password)
}

func TestResolve_ReportsKey(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Redis.Password = "secretref:env:FANADMIN_TEST_UNSET_PASSWORD"

	err := cfg.Resolve(context.Background(), secret.Default(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, secret.ErrNotFound)

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	assert.Equal(t, "session.redis.password", zErr.Metadata()["key"])
}

func TestDefaultPath_Env(t *testing.T) {
	t.Setenv(config.EnvPath, "/etc/fanadmin.yaml")
	assert.Equal(t, "/etc/fanadmin.yaml", config.DefaultPath())
}
