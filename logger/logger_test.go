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

package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLevel_String 测试日志级别的字符串表示
func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{OFF, "OFF"},
		{Level(999), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.level.String())
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": DEBUG, " Info ": INFO, "": INFO, "warning": WARN, "ERROR": ERROR, "off": OFF,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func logAt(l Logger, level Level, msg string) {
	switch level {
	case DEBUG:
		l.Debug(msg)
	case INFO:
		l.Info(msg)
	case WARN:
		l.Warn(msg)
	case ERROR:
		l.Error(msg)
	}
}

var filterCases = []struct {
	loggerLevel  Level
	messageLevel Level
	shouldLog    bool
}{
	{DEBUG, DEBUG, true},
	{DEBUG, ERROR, true},
	{INFO, DEBUG, false},
	{INFO, WARN, true},
	{WARN, INFO, false},
	{WARN, ERROR, true},
	{ERROR, WARN, false},
	{ERROR, ERROR, true},
	{OFF, ERROR, false},
}

// TestDefaultLogger_LevelFiltering 测试日志级别过滤
func TestDefaultLogger_LevelFiltering(t *testing.T) {
	for _, tt := range filterCases {
		var buf bytes.Buffer
		logAt(NewLogger(tt.loggerLevel, &buf), tt.messageLevel, "test message")
		assert.Equal(t, tt.shouldLog, buf.Len() > 0, "logger %s, message %s", tt.loggerLevel, tt.messageLevel)
	}
}

func TestDefaultLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(DEBUG, &buf)
	l.Debug("resolved arg[%d] type of %s from %s to %s", 0, "greatest", "INT", "BIGINT")
	line := strings.TrimSpace(buf.String())
	assert.Regexp(t, regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}\] \[DEBUG\] resolved arg\[0\] type of greatest from INT to BIGINT$`), line)

	buf.Reset()
	l.SetLevel(ERROR)
	l.Warn("dropped")
	assert.Zero(t, buf.Len())
	l.Error("kept %v", nil)
	assert.Contains(t, buf.String(), "[ERROR] kept <nil>")
}

// TestConcurrentLogging 并发写日志并修改级别
func TestConcurrentLogging(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	l := NewLogger(INFO, &lockedWriter{mu: &mu, w: &buf})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Info("worker %d message %d", i, j)
				if j == 25 {
					l.SetLevel(INFO)
				}
			}
		}(i)
	}
	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 400, strings.Count(buf.String(), "\n"))
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func TestDiscardAndGlobal(t *testing.T) {
	d := NewDiscardLogger()
	d.Debug("x")
	d.Error("x %d", 1)
	d.SetLevel(DEBUG)

	original := GetDefault()
	defer SetDefault(original)

	var buf bytes.Buffer
	SetDefault(NewLogger(WARN, &buf))
	Info("hidden")
	Warn("shown %s", "warn")
	Error("shown error")
	Debug("hidden")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown warn")
	assert.Contains(t, out, "[ERROR] shown error")
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	for _, tt := range filterCases {
		core, logs := observer.New(zapcore.DebugLevel)
		logAt(NewZapLogger(zap.New(core), tt.loggerLevel), tt.messageLevel, "test message")
		assert.Equal(t, tt.shouldLog, logs.Len() > 0, "logger %s, message %s", tt.loggerLevel, tt.messageLevel)
	}
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core), INFO)
	l.Info("flow %s started", "alerts")
	l.Warn("dropping event: %v", "bad")
	l.Debug("hidden")
	l.SetLevel(DEBUG)
	l.Debug("visible")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, "flow alerts started", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "visible", entries[2].Message)

	// nil falls back to a no-op logger
	NewZapLogger(nil, DEBUG).Error("nothing")
}

func TestNewFileLogger(t *testing.T) {
	_, _, err := NewFileLogger(FileConfig{})
	assert.Error(t, err)
	_, _, err = NewFileLogger(FileConfig{Filename: "x.log", Level: "loud"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "flowsql.log")
	l, closeFn, err := NewFileLogger(FileConfig{Filename: path, MaxSizeMB: 1, Level: "warn"})
	require.NoError(t, err)
	l.Info("not written")
	l.Error("window %s failed", "w1")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "window w1 failed", entry["msg"])
}
