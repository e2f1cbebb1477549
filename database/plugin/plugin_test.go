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

package plugin

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPlugin struct {
	logger   *slog.Logger
	registry prometheus.Registerer
	started  bool
}

func (t *testPlugin) SetLogger(logger *slog.Logger) {
	t.logger = logger
}

func (t *testPlugin) SetPromRegistry(registry prometheus.Registerer) {
	t.registry = registry
}

func (t *testPlugin) Start() error {
	t.started = true
	return nil
}

func (t *testPlugin) Stop() error {
	return nil
}

var testOpts struct {
	dir     string
	enabled bool
	workers int
	size    uint64
}

func registerTestPlugin(t *testing.T) {
	t.Helper()
	saved := pluginEntries
	t.Cleanup(func() { pluginEntries = saved })
	testOpts.dir = ""
	testOpts.enabled = false
	testOpts.workers = 0
	testOpts.size = 0
	Register(PluginEntry{
		Type: PluginTypeBlob,
		Name: "test",
		NewFromOptionsFunc: func() Plugin {
			return &testPlugin{}
		},
		Options: []PluginOption{
			{Name: "data-dir", Type: PluginOptionTypeString, Dest: &testOpts.dir, DefaultValue: "/tmp"},
			{Name: "enabled", Type: PluginOptionTypeBool, Dest: &testOpts.enabled},
			{Name: "workers", Type: PluginOptionTypeInt, Dest: &testOpts.workers, DefaultValue: 4},
			{Name: "size", Type: PluginOptionTypeUint, Dest: &testOpts.size, DefaultValue: uint64(8)},
		},
	})
}

func TestGetPlugin(t *testing.T) {
	registerTestPlugin(t)
	require.NotNil(t, GetPlugin(PluginTypeBlob, "test"))
	assert.Nil(t, GetPlugin(PluginTypeMetadata, "test"))
	assert.Nil(t, GetPlugin(PluginTypeBlob, "missing"))
	found := false
	for _, entry := range GetPlugins(PluginTypeBlob) {
		if entry.Name == "test" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestStartPlugin(t *testing.T) {
	registerTestPlugin(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	p, err := StartPlugin(PluginTypeBlob, "test", logger, reg)
	require.NoError(t, err)
	tp, ok := p.(*testPlugin)
	require.True(t, ok)
	assert.True(t, tp.started)
	assert.Same(t, logger, tp.logger)
	assert.Equal(t, reg, tp.registry)

	_, err = StartPlugin(PluginTypeBlob, "missing", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestErrorPlugin(t *testing.T) {
	testErr := errors.New("boom")
	p := NewErrorPlugin(testErr)
	require.ErrorIs(t, p.Start(), testErr)
	require.NoError(t, p.Stop())
}

func TestSetPluginOption(t *testing.T) {
	registerTestPlugin(t)
	require.NoError(t, SetPluginOption(PluginTypeBlob, "test", "data-dir", "/data"))
	require.NoError(t, SetPluginOption(PluginTypeBlob, "test", "enabled", true))
	require.NoError(t, SetPluginOption(PluginTypeBlob, "test", "workers", 12))
	require.NoError(t, SetPluginOption(PluginTypeBlob, "test", "size", 16))
	assert.Equal(t, "/data", testOpts.dir)
	assert.True(t, testOpts.enabled)
	assert.Equal(t, 12, testOpts.workers)
	assert.Equal(t, uint64(16), testOpts.size)

	// Unknown options are ignored
	require.NoError(t, SetPluginOption(PluginTypeBlob, "test", "nope", "x"))

	require.Error(t, SetPluginOption(PluginTypeBlob, "test", "workers", "many"))
	require.Error(t, SetPluginOption(PluginTypeBlob, "test", "size", -1))
	require.Error(t, SetPluginOption(PluginTypeBlob, "test", "data-dir", 5))
	require.Error(t, SetPluginOption(PluginTypeBlob, "missing", "data-dir", "/data"))
}

func TestPopulateCmdlineOptions(t *testing.T) {
	registerTestPlugin(t)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, PopulateCmdlineOptions(fs))
	require.NotNil(t, fs.Lookup("blob-test-data-dir"))
	assert.Equal(t, "/tmp", testOpts.dir)
	assert.Equal(t, 4, testOpts.workers)
	require.NoError(t, fs.Parse([]string{"--blob-test-data-dir", "/srv", "--blob-test-size", "32"}))
	assert.Equal(t, "/srv", testOpts.dir)
	assert.Equal(t, uint64(32), testOpts.size)
}

func TestProcessEnvVars(t *testing.T) {
	registerTestPlugin(t)
	t.Setenv("BALLOT_BLOB_TEST_DATA_DIR", "/env")
	t.Setenv("BALLOT_BLOB_TEST_ENABLED", "true")
	require.NoError(t, ProcessEnvVars())
	assert.Equal(t, "/env", testOpts.dir)
	assert.True(t, testOpts.enabled)

	t.Setenv("BALLOT_BLOB_TEST_WORKERS", "x")
	require.Error(t, ProcessEnvVars())
}

func TestProcessConfig(t *testing.T) {
	registerTestPlugin(t)
	err := ProcessConfig(map[string]map[string]map[string]any{
		"blob": {
			"test": {
				"data-dir": "/cfg",
				"workers":  2,
			},
		},
		"metadata": {
			"other": {"x": "y"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/cfg", testOpts.dir)
	assert.Equal(t, 2, testOpts.workers)
}
