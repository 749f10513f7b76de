/*
 * Copyright 2024 The RuleGo Authors.
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

package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	TypeTumbling = "tumbling"
	TypeSliding  = "sliding"
)

// Config 时间窗口配置
type Config struct {
	// Type is TypeTumbling or TypeSliding.
	Type string `yaml:"type"`
	// Size is the time range covered by one window.
	Size time.Duration `yaml:"size"`
	// Slide is the distance between window starts. Zero means Size.
	Slide time.Duration `yaml:"slide"`
	// MaxOutOfOrder is how far behind the newest event time an event may
	// arrive and still be counted.
	MaxOutOfOrder time.Duration `yaml:"maxOutOfOrder"`
}

// NewConfig builds a Config from loosely typed parameters such as "10s" or
// 10*time.Second: tumbling takes (size), sliding takes (size, slide).
func NewConfig(windowType string, params ...interface{}) (Config, error) {
	cfg := Config{Type: strings.ToLower(windowType)}
	if len(params) < 1 {
		return cfg, fmt.Errorf("%s window requires at least 'size' parameter", cfg.Type)
	}
	size, err := cast.ToDurationE(params[0])
	if err != nil {
		return cfg, fmt.Errorf("invalid size for %s window: %v", cfg.Type, err)
	}
	cfg.Size = size
	switch cfg.Type {
	case TypeTumbling:
	case TypeSliding:
		if len(params) < 2 {
			return cfg, fmt.Errorf("sliding window requires 'slide' parameter")
		}
		if cfg.Slide, err = cast.ToDurationE(params[1]); err != nil {
			return cfg, fmt.Errorf("invalid slide for sliding window: %v", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported window type: %s", windowType)
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration and fills in the tumbling slide.
func (c *Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("window size must be positive, got %s", c.Size)
	}
	switch c.Type {
	case TypeTumbling:
		if c.Slide != 0 && c.Slide != c.Size {
			return fmt.Errorf("tumbling window slide must equal size")
		}
		c.Slide = c.Size
	case TypeSliding:
		if c.Slide <= 0 || c.Slide > c.Size {
			return fmt.Errorf("sliding window slide must be in (0, %s], got %s", c.Size, c.Slide)
		}
		if c.Size%c.Slide != 0 {
			return fmt.Errorf("sliding window size %s must be a multiple of slide %s", c.Size, c.Slide)
		}
	default:
		return fmt.Errorf("unsupported window type: %s", c.Type)
	}
	if c.MaxOutOfOrder < 0 {
		return fmt.Errorf("max out-of-order must not be negative")
	}
	return nil
}

// PanesPerWindow returns how many slide-wide panes make up one window.
func (c Config) PanesPerWindow() int {
	return int(c.Size / c.Slide)
}

func (c Config) String() string {
	if c.Type == TypeSliding {
		return fmt.Sprintf("SLIDINGWINDOW(%s, %s)", c.Size, c.Slide)
	}
	return fmt.Sprintf("TUMBLINGWINDOW(%s)", c.Size)
}
