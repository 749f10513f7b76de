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

package flow

import (
	"time"

	"github.com/rulego/flowsql/expr"
	"github.com/rulego/flowsql/window"
)

// Mode is decided once per flow at compile time.
type Mode int

const (
	// ModeScalar evaluates every projection per event.
	ModeScalar Mode = iota
	// ModeAggregate accumulates events into windows and emits one row per fired window and group.
	ModeAggregate
)

func (m Mode) String() string {
	if m == ModeAggregate {
		return "aggregate"
	}
	return "scalar"
}

// Projection 输出列
type Projection struct {
	// Alias names the output column; empty means the expression text.
	Alias string
	Expr  expr.Expr
}

// Spec describes a flow before compilation. Planners produce it from query
// text; it can also be built directly.
type Spec struct {
	Name string
	// Filter is an expr-lang predicate over event fields, empty for none.
	Filter      string
	Projections []Projection
	// GroupBy lists field names; only valid with a window.
	GroupBy []string
	Window  *window.Config
	// Workers is the number of goroutines of a scalar flow. Values below 1 mean 1.
	Workers int
}

// Result 一行输出
type Result struct {
	Flow string
	// Values maps output column to value.
	Values map[string]interface{}
	// WindowStart and WindowEnd are zero for scalar flows.
	WindowStart time.Time
	WindowEnd   time.Time
}

// Sink receives flow output. A flow serializes calls into its sinks.
type Sink interface {
	OnResult(r Result)
	// OnError receives evaluation failures; the offending event or window is dropped.
	OnError(err error)
}

// SinkFunc adapts a function to a Sink that ignores errors.
type SinkFunc func(Result)

func (f SinkFunc) OnResult(r Result) { f(r) }
func (f SinkFunc) OnError(error)     {}
