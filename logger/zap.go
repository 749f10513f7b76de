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
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures a rotating JSON log file.
type FileConfig struct {
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
	Level      string `yaml:"level"`
}

// zapLogger adapts a *zap.Logger to Logger.
// Level filtering happens here; the zap core keeps its own level as well.
type zapLogger struct {
	sugar *zap.SugaredLogger
	level atomic.Int32
}

// NewZapLogger wraps l. Messages below level are dropped before reaching zap.
func NewZapLogger(l *zap.Logger, level Level) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	zl := &zapLogger{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
	zl.level.Store(int32(level))
	return zl
}

// NewFileLogger builds a zap JSON logger writing through lumberjack.
// The returned close function flushes zap and closes the current file.
func NewFileLogger(cfg FileConfig) (Logger, func() error, error) {
	if cfg.Filename == "" {
		return nil, nil, errors.New("logger: file name is required")
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	w := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	encoder := zap.NewProductionEncoderConfig()
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoder), zapcore.AddSync(w), zapcore.DebugLevel)
	zl := zap.New(core, zap.AddCaller())
	closeFn := func() error {
		// 文件句柄上的Sync错误不影响关闭
		_ = zl.Sync()
		return w.Close()
	}
	return NewZapLogger(zl, level), closeFn, nil
}

func (z *zapLogger) enabled(level Level) bool {
	current := Level(z.level.Load())
	return current != OFF && current <= level
}

func (z *zapLogger) Debug(format string, args ...interface{}) {
	if z.enabled(DEBUG) {
		z.sugar.Debugf(format, args...)
	}
}

func (z *zapLogger) Info(format string, args ...interface{}) {
	if z.enabled(INFO) {
		z.sugar.Infof(format, args...)
	}
}

func (z *zapLogger) Warn(format string, args ...interface{}) {
	if z.enabled(WARN) {
		z.sugar.Warnf(format, args...)
	}
}

func (z *zapLogger) Error(format string, args ...interface{}) {
	if z.enabled(ERROR) {
		z.sugar.Errorf(format, args...)
	}
}

func (z *zapLogger) SetLevel(level Level) {
	z.level.Store(int32(level))
}
