// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "config.*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	_, err = tmpfile.Write([]byte(content))
	require.NoError(t, err)
	tmpfile.Close()
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: testhost
  port: 9090

api:
  base_path: /api/v1
  swagger_host: test.api.com

metrics:
  enabled: true
  path: /metrics

auth:
  account_param: account
  admin:
    subjects: [ops-1, ops-2]
    claim: role_admin
  accounts:
    - name: primary
      type: hmac
      secret: s3cret
    - name: secondary
      credentials: '{"project_id":"demo"}'
  cache:
    enabled: true
    backend: redis
    redis:
      host: cache.local
      port: 6380
      db: 2
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "testhost", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/api/v1", cfg.API.BasePath)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "account", cfg.Auth.AccountParam)
	assert.Equal(t, []string{"ops-1", "ops-2"}, cfg.Auth.Admin.Subjects)
	assert.Equal(t, "role_admin", cfg.Auth.Admin.Claim)

	require.Len(t, cfg.Auth.Accounts, 2)
	assert.Equal(t, "hmac", cfg.Auth.Accounts[0].Type)
	assert.Equal(t, "firebase", cfg.Auth.Accounts[1].Type)
	assert.True(t, cfg.Auth.Cache.Enabled)
	assert.Equal(t, "redis://cache.local:6380/2", cfg.RedisURL())
}

func TestRedisURLCarriesPassword(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
auth:
  cache:
    enabled: true
    redis:
      host: cache.local
      port: 6380
      password: "s3cret/with:chars"
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret/with:chars", cfg.Auth.Cache.Redis.Password)

	u, err := url.Parse(cfg.RedisURL())
	require.NoError(t, err)
	assert.Equal(t, "cache.local:6380", u.Host)
	assert.Equal(t, "/0", u.Path)
	pw, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "s3cret/with:chars", pw)
}

func TestDefaultValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/", cfg.API.BasePath)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DefaultAccountParam, cfg.Auth.AccountParam)
	assert.Equal(t, "redis", cfg.Auth.Cache.Backend)
	assert.Equal(t, "auth_cache", cfg.Auth.Cache.Postgres.Table)
	assert.Equal(t, DefaultAdminClaim, cfg.Auth.Admin.Claim)
	assert.Empty(t, cfg.Auth.Admin.Subjects)
	assert.False(t, cfg.Auth.Cache.Enabled)
}

func TestRedisURLFallback(t *testing.T) {
	cfg := &Config{}

	t.Setenv("REDIS_CACHE_URL", "")
	t.Setenv("REDIS_URL", "")
	assert.Equal(t, DefaultRedisURL, cfg.RedisURL())

	t.Setenv("REDIS_URL", "redis://fallback:6379")
	assert.Equal(t, "redis://fallback:6379", cfg.RedisURL())

	t.Setenv("REDIS_CACHE_URL", "redis://cache:6379")
	assert.Equal(t, "redis://cache:6379", cfg.RedisURL())

	cfg.Auth.Cache.Redis.URL = "redis://explicit:6379"
	assert.Equal(t, "redis://explicit:6379", cfg.RedisURL())
}

func TestCredentialsJSON(t *testing.T) {
	inline := AccountConfig{Name: "a", Credentials: `{"k":"v"}`}
	data, err := inline.CredentialsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, string(data))

	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"file":true}`), 0o600))
	fromFile := AccountConfig{Name: "b", CredentialsFile: path}
	data, err = fromFile.CredentialsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":true}`, string(data))

	missing := AccountConfig{Name: "c", CredentialsFile: filepath.Join(t.TempDir(), "nope.json")}
	_, err = missing.CredentialsJSON()
	assert.Error(t, err)

	empty := AccountConfig{Name: "d"}
	data, err = empty.CredentialsJSON()
	assert.NoError(t, err)
	assert.Nil(t, data)
}
