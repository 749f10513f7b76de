/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package flowsql

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rulego/flowsql/flow"
	"github.com/rulego/flowsql/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Nil(t, cfg.Log.File)
	assert.Equal(t, 1, cfg.Flow.Workers)
	assert.Equal(t, "flowsql", cfg.Metrics.Namespace)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
log:
  level: debug
  file:
    filename: /var/log/flowsql.log
    maxSizeMB: 10
    compress: true
symbols:
  maxAliasDepth: 4
window:
  maxOutOfOrder: 2s
flow:
  inputBuffer: 64
  workers: 3
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NotNil(t, cfg.Log.File)
	assert.Equal(t, "/var/log/flowsql.log", cfg.Log.File.Filename)
	assert.Equal(t, 10, cfg.Log.File.MaxSizeMB)
	assert.True(t, cfg.Log.File.Compress)
	assert.Equal(t, 4, cfg.Symbols.MaxAliasDepth)
	assert.Equal(t, 2*time.Second, cfg.Window.MaxOutOfOrder)
	assert.Equal(t, 64, cfg.Flow.InputBuffer)
	assert.Equal(t, 3, cfg.Flow.Workers)
	// 未出现的键保留默认值
	assert.Equal(t, "flowsql", cfg.Metrics.Namespace)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{"bad yaml", "log: [", "parse config"},
		{"bad level", "log: {level: loud}", "unknown log level"},
		{"file without name", "log: {file: {compress: true}}", "log.file.filename"},
		{"alias depth", "symbols: {maxAliasDepth: 0}", "symbols.maxAliasDepth"},
		{"negative lateness", "window: {maxOutOfOrder: -1s}", "window.maxOutOfOrder"},
		{"input buffer", "flow: {inputBuffer: 0}", "flow.inputBuffer"},
		{"workers", "flow: {workers: -2}", "flow.workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowsql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("flow:\n  workers: 2\n"), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Flow.Workers)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "load config")
}

func TestApplyDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Flow.Workers = 4
	cfg.Window.MaxOutOfOrder = time.Second

	win, err := window.NewConfig(window.TypeTumbling, "10s")
	require.NoError(t, err)
	spec := cfg.applyDefaults(flow.Spec{Name: "a", Window: &win})
	assert.Equal(t, 4, spec.Workers)
	assert.Equal(t, time.Second, spec.Window.MaxOutOfOrder)
	// 调用方的窗口配置不被修改
	assert.Zero(t, win.MaxOutOfOrder)

	win.MaxOutOfOrder = 5 * time.Second
	spec = cfg.applyDefaults(flow.Spec{Name: "b", Window: &win, Workers: 1})
	assert.Equal(t, 1, spec.Workers)
	assert.Equal(t, 5*time.Second, spec.Window.MaxOutOfOrder)
}
