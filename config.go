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
	"fmt"
	"os"
	"time"

	"github.com/rulego/flowsql/exec"
	"github.com/rulego/flowsql/flow"
	"github.com/rulego/flowsql/logger"
	"github.com/rulego/flowsql/symbol"
	"gopkg.in/yaml.v3"
)

// Config 引擎配置，可从YAML文件加载
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Symbols SymbolsConfig `yaml:"symbols"`
	Window  WindowConfig  `yaml:"window"`
	Flow    FlowConfig    `yaml:"flow"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type LogConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR, OFF.
	Level string `yaml:"level"`
	// File switches logging to a rotating JSON file when set.
	File *logger.FileConfig `yaml:"file,omitempty"`
}

type SymbolsConfig struct {
	MaxAliasDepth int `yaml:"maxAliasDepth"`
}

type WindowConfig struct {
	// MaxOutOfOrder is applied to windows that do not set their own.
	MaxOutOfOrder time.Duration `yaml:"maxOutOfOrder"`
}

type FlowConfig struct {
	InputBuffer int `yaml:"inputBuffer"`
	// Workers is applied to flows that do not set their own.
	Workers int `yaml:"workers"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns the configuration used when nothing is loaded.
func DefaultConfig() Config {
	return Config{
		Log:     LogConfig{Level: logger.INFO.String()},
		Symbols: SymbolsConfig{MaxAliasDepth: symbol.DefaultMaxAliasDepth},
		Flow:    FlowConfig{InputBuffer: exec.DefaultInputBuffer, Workers: 1},
		Metrics: MetricsConfig{Namespace: flow.DefaultNamespace},
	}
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return ParseConfig(data)
}

// Validate 校验配置取值
func (c Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Log.File != nil && c.Log.File.Filename == "" {
		return fmt.Errorf("invalid config: log.file.filename is required")
	}
	if c.Symbols.MaxAliasDepth < 1 {
		return fmt.Errorf("invalid config: symbols.maxAliasDepth must be positive, got %d", c.Symbols.MaxAliasDepth)
	}
	if c.Window.MaxOutOfOrder < 0 {
		return fmt.Errorf("invalid config: window.maxOutOfOrder must not be negative")
	}
	if c.Flow.InputBuffer < 1 {
		return fmt.Errorf("invalid config: flow.inputBuffer must be positive, got %d", c.Flow.InputBuffer)
	}
	if c.Flow.Workers < 1 {
		return fmt.Errorf("invalid config: flow.workers must be positive, got %d", c.Flow.Workers)
	}
	return nil
}

// applyDefaults fills the unset parts of spec from the configuration.
func (c Config) applyDefaults(spec flow.Spec) flow.Spec {
	if spec.Workers == 0 {
		spec.Workers = c.Flow.Workers
	}
	if spec.Window != nil && spec.Window.MaxOutOfOrder == 0 && c.Window.MaxOutOfOrder > 0 {
		w := *spec.Window
		w.MaxOutOfOrder = c.Window.MaxOutOfOrder
		spec.Window = &w
	}
	return spec
}
