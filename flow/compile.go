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
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rulego/flowsql/condition"
	"github.com/rulego/flowsql/expr"
	"github.com/rulego/flowsql/logger"
	"github.com/rulego/flowsql/symbol"
	"github.com/rulego/flowsql/types"
	"github.com/rulego/flowsql/window"
	"golang.org/x/time/rate"
)

// DefaultErrorLogRate bounds the WARN lines written for dropped inputs.
const (
	DefaultErrorLogRate  rate.Limit = 10
	DefaultErrorLogBurst            = 20
)

// ErrInvalidSpec wraps every structural problem found by Compile.
// Type errors of projections are reported as *expr.TypeCheckError.
var ErrInvalidSpec = errors.New("invalid flow")

type options struct {
	log       logger.Logger
	reg       prometheus.Registerer
	namespace string
	metrics   *Metrics
	logRate   rate.Limit
	logBurst  int
}

// Option configures Compile.
type Option func(*options)

// WithLogger sets the flow logger. The default is logger.GetDefault().
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithRegisterer registers the flow counters on reg under namespace.
func WithRegisterer(reg prometheus.Registerer, namespace string) Option {
	return func(o *options) {
		o.reg = reg
		o.namespace = namespace
	}
}

// WithMetrics uses counters created by the caller.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithErrorLogRate limits how many dropped-input warnings are logged per
// second. rate.Inf logs every one. Counting and sink delivery are not limited.
func WithErrorLogRate(r rate.Limit, burst int) Option {
	return func(o *options) {
		o.logRate = r
		o.logBurst = burst
	}
}

// column is a compiled projection. agg indexes the window accumulators, -1 for non-aggregates.
type column struct {
	alias string
	expr  expr.Expr
	typ   types.Type
	agg   int
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSpec, fmt.Sprintf(format, args...))
}

// Compile 一次性解析所有投影并确定执行模式。
//
// Every projection is resolved against tab exactly once. The flow is in
// aggregate mode when any projection is an aggregate call; aggregate mode
// requires a window, and its non-aggregate projections may read only
// group-by fields. Aggregate calls nested inside other calls are rejected.
func Compile(spec Spec, tab *symbol.Table, opts ...Option) (*Flow, error) {
	o := &options{logRate: DefaultErrorLogRate, logBurst: DefaultErrorLogBurst}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.GetDefault()
	}
	if spec.Name == "" {
		return nil, invalid("flow name is required")
	}
	if len(spec.Projections) == 0 {
		return nil, invalid("flow %s has no projections", spec.Name)
	}

	f := &Flow{spec: spec, log: o.log, warnLimit: rate.NewLimiter(o.logRate, o.logBurst)}
	if strings.TrimSpace(spec.Filter) != "" {
		cond, err := condition.Compile(spec.Filter)
		if err != nil {
			return nil, fmt.Errorf("%w: filter of %s: %v", ErrInvalidSpec, spec.Name, err)
		}
		f.filter = cond
	}

	seen := make(map[string]struct{}, len(spec.Projections))
	var accs []window.Accumulator
	var lists [][]types.TypedField
	for _, p := range spec.Projections {
		if p.Expr == nil {
			return nil, invalid("projection %q of %s has no expression", p.Alias, spec.Name)
		}
		typ, err := p.Expr.Type(tab)
		if err != nil {
			return nil, fmt.Errorf("flow %s: projection %s: %w", spec.Name, p.Expr, err)
		}
		isAgg, err := classify(p.Expr)
		if err != nil {
			return nil, err
		}
		alias := p.Alias
		if alias == "" {
			alias = p.Expr.String()
		}
		if _, dup := seen[strings.ToLower(alias)]; dup {
			return nil, invalid("duplicate output column %q in %s", alias, spec.Name)
		}
		seen[strings.ToLower(alias)] = struct{}{}

		fields, err := p.Expr.RequiredFields(tab)
		if err != nil {
			return nil, fmt.Errorf("flow %s: projection %s: %w", spec.Name, alias, err)
		}
		lists = append(lists, fields)

		col := column{alias: alias, expr: p.Expr, typ: typ, agg: -1}
		if isAgg {
			col.agg = len(accs)
			accs = append(accs, p.Expr.(*expr.FnCallExpr))
		}
		f.columns = append(f.columns, col)
		f.schema = append(f.schema, types.TypedField{Name: alias, Type: typ})
	}

	if len(accs) > 0 {
		f.mode = ModeAggregate
	}
	switch {
	case f.mode == ModeAggregate && spec.Window == nil:
		return nil, invalid("aggregate projections of %s require a window", spec.Name)
	case f.mode == ModeScalar && spec.Window != nil:
		return nil, invalid("windowed flow %s has no aggregate projection", spec.Name)
	case f.mode == ModeScalar && len(spec.GroupBy) > 0:
		return nil, invalid("GROUP BY in %s requires aggregate projections", spec.Name)
	}

	if f.mode == ModeAggregate {
		groupSet := make(map[string]struct{}, len(spec.GroupBy))
		for _, name := range spec.GroupBy {
			id := expr.NewIdent(name)
			typ, err := id.Type(tab)
			if err != nil {
				return nil, fmt.Errorf("flow %s: group by %s: %w", spec.Name, name, err)
			}
			f.groupBy = append(f.groupBy, id)
			groupSet[strings.ToLower(name)] = struct{}{}
			lists = append(lists, []types.TypedField{{Name: name, Type: typ}})
		}
		for i, col := range f.columns {
			if col.agg >= 0 {
				continue
			}
			for _, field := range lists[i] {
				if _, ok := groupSet[strings.ToLower(field.Name)]; !ok {
					return nil, invalid("column %s of %s reads %s, which is neither aggregated nor grouped", col.alias, spec.Name, field.Name)
				}
			}
		}
		mgr, err := window.NewManager(*spec.Window, accs)
		if err != nil {
			return nil, fmt.Errorf("%w: window of %s: %v", ErrInvalidSpec, spec.Name, err)
		}
		f.mgr = mgr
		if spec.Workers > 1 {
			o.log.Warn("flow %s: aggregate flows run on one worker, ignoring workers=%d", spec.Name, spec.Workers)
		}
	}
	f.inputs = types.MergeFields(lists...)

	if f.filter != nil {
		for _, name := range f.filter.Fields() {
			if _, err := tab.Lookup(name); err != nil {
				o.log.Warn("flow %s: filter reads %s, which is not a declared field", spec.Name, name)
			}
		}
	}

	f.metrics = o.metrics
	if f.metrics == nil {
		m, err := NewMetrics(o.reg, o.namespace, spec.Name)
		if err != nil {
			return nil, fmt.Errorf("flow %s: metrics: %w", spec.Name, err)
		}
		f.metrics = m
	}
	o.log.Debug("flow %s compiled: mode=%s columns=%d aggregates=%d", spec.Name, f.mode, len(f.columns), len(accs))
	return f, nil
}

// classify reports whether e is an aggregate call and rejects aggregates
// anywhere below the root.
func classify(e expr.Expr) (bool, error) {
	call, ok := e.(*expr.FnCallExpr)
	if !ok {
		return false, nil
	}
	for _, arg := range call.Args() {
		if err := noAggregates(arg, call); err != nil {
			return false, err
		}
	}
	return call.IsAggregate(), nil
}

func noAggregates(e expr.Expr, parent *expr.FnCallExpr) error {
	call, ok := e.(*expr.FnCallExpr)
	if !ok {
		return nil
	}
	if call.IsAggregate() {
		return invalid("aggregate %s cannot be nested inside %s", call, parent.FunctionName())
	}
	for _, arg := range call.Args() {
		if err := noAggregates(arg, call); err != nil {
			return err
		}
	}
	return nil
}
