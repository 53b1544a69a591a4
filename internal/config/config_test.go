package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := New()
	v.Set("auth-secret", "s3cret")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, EngineHybrid, cfg.Engine)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("QUILL_AUTH_SECRET", "from-env")
	t.Setenv("QUILL_STORE", "Postgres")
	t.Setenv("QUILL_POSTGRES_DSN", "postgres://quill@localhost/quill?sslmode=disable")
	t.Setenv("QUILL_SESSION_TTL", "2h")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.AuthSecret)
	assert.Equal(t, EnginePostgres, cfg.Engine)
	assert.Equal(t, "postgres://quill@localhost/quill?sslmode=disable", cfg.PostgresDSN)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
		want string
	}{
		{"missing secret", map[string]any{}, "auth-secret"},
		{"unknown engine", map[string]any{"auth-secret": "x", "store": "mongo"}, "unknown store"},
		{"postgres without dsn", map[string]any{"auth-secret": "x", "store": "postgres"}, "postgres-dsn"},
		{"hybrid without redis", map[string]any{"auth-secret": "x", "redis": ""}, "redis"},
		{"bad ttl", map[string]any{"auth-secret": "x", "session-ttl": "0s"}, "session-ttl"},
		{"bad log format", map[string]any{"auth-secret": "x", "log-format": "xml"}, "log-format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quill.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9090\"\nauth-secret: file-secret\n"), 0o600))

	v := New()
	require.NoError(t, ReadFile(v, path))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "file-secret", cfg.AuthSecret)
}

func TestReadFile_MissingExplicitFile(t *testing.T) {
	err := ReadFile(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
