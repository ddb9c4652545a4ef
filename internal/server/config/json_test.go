package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"endpoint_addr_http":  "www.example:9000",
		"database_dsn":        "blog.db",
		"secret_key":          "my_secret_key",
		"session_token_ttl":   "90s",
		"bcrypt_cost":         12,
		"frontend_url":        "https://front.example",
		"s3_root_user":        "user",
		"s3_root_password":    "password",
		"s3_bucket":           "bucket",
		"s3_region":           "region",
		"s3_base_endpoint":    "base_endpoint",
		"kakao_client_id":     "kid",
		"kakao_client_secret": "ksecret",
		"kakao_redirect_url":  "https://api.example/auth/kakao/callback",
	})

	t.Run("loads every field", func(t *testing.T) {
		cfg := &Config{}
		parseJson(cfg, []string{"-config", full})

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "blog.db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 90*time.Second, cfg.SessionTokenTTL)
		assert.Equal(t, 12, cfg.BcryptCost)
		assert.Equal(t, "https://front.example", cfg.FrontendURL)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, "kid", cfg.KakaoClientID)
		assert.Equal(t, "ksecret", cfg.KakaoClientSecret)
		assert.Equal(t, "https://api.example/auth/kakao/callback", cfg.KakaoRedirectURL)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"secret_key": "only-this"})

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", partial})

		assert.Equal(t, "only-this", cfg.SecretKey)
		assert.Equal(t, ":3000", cfg.EndpointAddrHTTP)
	})

	t.Run("no config flag, no changes", func(t *testing.T) {
		cfg := &Config{SecretKey: "key", BcryptCost: 4}
		parseJson(cfg, []string{"-a", ":1"})

		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 4, cfg.BcryptCost)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", bad}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", filepath.Join(dir, "nope.json")}) })
	})
}
