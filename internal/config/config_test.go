// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobalConfig(t *testing.T) {
	t.Helper()
	*globalConfig = defaultConfig()
	// Keep the user's own config files out of the test
	t.Setenv("HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ballot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	if _, err := os.Stat("/etc/ballot/ballot.yaml"); err == nil {
		t.Skip("system config file present")
	}
	resetGlobalConfig(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), *cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadFile(t *testing.T) {
	resetGlobalConfig(t)
	path := writeConfig(t, `
databasePath: /var/lib/ballot
bindAddr: 127.0.0.1
apiPort: 9000
tracing: true
shutdownTimeout: 5s
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ballot", cfg.DatabasePath)
	assert.Equal(t, "127.0.0.1", cfg.BindAddr)
	assert.Equal(t, uint(9000), cfg.ApiPort)
	assert.Equal(t, uint(12799), cfg.MetricsPort)
	assert.True(t, cfg.Tracing)
	timeout, err := cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
}

func TestLoadConfigSection(t *testing.T) {
	resetGlobalConfig(t)
	path := writeConfig(t, `
config:
  metricsPort: 9100
database:
  blob:
    plugin: badger
  metadata:
    plugin: postgres
    postgres:
      host: db.internal
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(9100), cfg.MetricsPort)
	assert.Equal(t, "badger", cfg.BlobPlugin)
	assert.Equal(t, "postgres", cfg.MetadataPlugin)
}

func TestEnvOverridesFile(t *testing.T) {
	resetGlobalConfig(t)
	path := writeConfig(t, "apiPort: 9000\n")
	t.Setenv("BALLOT_API_PORT", "9001")
	t.Setenv("BALLOT_METADATA_PLUGIN", "mysql")
	t.Setenv("BALLOT_API_CORS_ORIGINS", "https://a.example,https://b.example")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(9001), cfg.ApiPort)
	assert.Equal(t, "mysql", cfg.MetadataPlugin)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.ApiCorsOrigins)
}

func TestInvalidShutdownTimeout(t *testing.T) {
	resetGlobalConfig(t)
	path := writeConfig(t, "shutdownTimeout: soon\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestMissingFile(t *testing.T) {
	resetGlobalConfig(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestContext(t *testing.T) {
	cfg := &Config{ApiPort: 1}
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
