package config_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/scenestack/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.Redis.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenestack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: json
http:
  addr: 127.0.0.1:9090
redis:
  addr: localhost:6379
  db: 2
  prefix: "game:"
  ttl: 1h
masterdata:
  source: redis
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout, "unset fields keep defaults")
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "game:", cfg.Redis.Prefix)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, config.SourceRedis, cfg.MasterData.Source)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"Log level", "log: {level: loud}", "log.level"},
		{"Log format", "log: {format: xml}", "log.format"},
		{"Empty addr", "http: {addr: ''}", "http.addr"},
		{"Negative db", "redis: {db: -1}", "redis.db"},
		{"File without path", "masterdata: {source: file}", "masterdata.path"},
		{"Redis without addr", "masterdata: {source: redis}", "requires redis.addr"},
		{"Unknown source", "masterdata: {source: s3}", "unknown source"},
		{"Short key", "snapshot: {encryption_key: c2hvcnQ=}", "key must be 32 bytes"},
		{"Fallback without key", "snapshot: {fallback_keys: [c2hvcnQ=]}", "require encryption_key"},
		{"Bad mask", "snapshot: {mask_keys: ['(']}", "snapshot.mask_keys"},
		{"Malformed", "log: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	cfg.HTTP.Addr = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "http.addr")
}

func TestSnapshotConfig_Keys(t *testing.T) {
	key := make([]byte, 32)
	key[0] = 1
	old := make([]byte, 32)

	cfg := config.SnapshotConfig{
		EncryptionKey: base64.StdEncoding.EncodeToString(key),
		FallbackKeys:  []string{base64.StdEncoding.EncodeToString(old)},
	}
	active, fallback, err := cfg.Keys()
	require.NoError(t, err)
	assert.Equal(t, key, active)
	assert.Equal(t, [][]byte{old}, fallback)

	active, fallback, err = config.SnapshotConfig{}.Keys()
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Nil(t, fallback)
}
