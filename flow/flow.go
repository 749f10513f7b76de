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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rulego/flowsql/condition"
	"github.com/rulego/flowsql/dataset"
	"github.com/rulego/flowsql/expr"
	"github.com/rulego/flowsql/logger"
	"github.com/rulego/flowsql/types"
	"github.com/rulego/flowsql/window"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("flow is already running")

// Flow is a compiled flow. Run may be called once.
type Flow struct {
	spec    Spec
	mode    Mode
	filter  condition.Condition
	columns []column
	groupBy []*expr.Ident
	schema  []types.TypedField
	inputs  []types.TypedField
	mgr     *window.Manager
	log     logger.Logger
	metrics *Metrics

	warnLimit  *rate.Limiter
	suppressed atomic.Int64

	sinksMu  sync.Mutex
	sinks    []sinkEntry
	nextSink int

	// deliverMu serializes sink calls; sinks may deregister themselves while called.
	deliverMu sync.Mutex
	running   atomic.Bool
}

func (f *Flow) Name() string {
	return f.spec.Name
}

func (f *Flow) Mode() Mode {
	return f.mode
}

// Spec returns the definition the flow was compiled from.
func (f *Flow) Spec() Spec {
	return f.spec
}

// Schema lists the output columns and their resolved types.
func (f *Flow) Schema() []types.TypedField {
	out := make([]types.TypedField, len(f.schema))
	copy(out, f.schema)
	return out
}

// RequiredFields lists the input fields read by projections and group-by.
func (f *Flow) RequiredFields() []types.TypedField {
	out := make([]types.TypedField, len(f.inputs))
	copy(out, f.inputs)
	return out
}

func (f *Flow) Metrics() *Metrics {
	return f.metrics
}

type sinkEntry struct {
	id   int
	sink Sink
}

// AddSink registers s and returns a function that deregisters it.
// Sinks added while the flow runs see later results only.
func (f *Flow) AddSink(s Sink) (remove func()) {
	f.sinksMu.Lock()
	defer f.sinksMu.Unlock()
	f.nextSink++
	id := f.nextSink
	f.sinks = append(f.sinks, sinkEntry{id: id, sink: s})
	return func() {
		f.sinksMu.Lock()
		defer f.sinksMu.Unlock()
		for i, e := range f.sinks {
			if e.id == id {
				f.sinks = append(f.sinks[:i:i], f.sinks[i+1:]...)
				return
			}
		}
	}
}

// Run consumes in until it is closed or ctx is done. When in is closed an
// aggregate flow fires every open window before returning nil.
func (f *Flow) Run(ctx context.Context, in <-chan dataset.EventWrapper) error {
	if !f.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	workers := 1
	if f.mode == ModeScalar && f.spec.Workers > 1 {
		workers = f.spec.Workers
	}
	f.log.Info("flow %s started: mode=%s workers=%d", f.spec.Name, f.mode, workers)
	var err error
	if f.mode == ModeAggregate {
		err = f.runAggregate(ctx, in)
	} else {
		err = f.runScalar(ctx, in, workers)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		f.log.Error("flow %s stopped: %v", f.spec.Name, err)
	} else {
		f.log.Info("flow %s stopped", f.spec.Name)
	}
	return err
}

func (f *Flow) runScalar(ctx context.Context, in <-chan dataset.EventWrapper, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		cols := f.columns
		if i > 0 {
			// 每个worker持有独立的调用节点，共享解析结果
			cols = cloneColumns(f.columns)
		}
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case ev, ok := <-in:
					if !ok {
						return nil
					}
					f.processScalar(ev, cols)
				}
			}
		})
	}
	return g.Wait()
}

func cloneColumns(cols []column) []column {
	out := make([]column, len(cols))
	for i, c := range cols {
		c.expr = expr.Clone(c.expr)
		out[i] = c
	}
	return out
}

func (f *Flow) runAggregate(ctx context.Context, in <-chan dataset.EventWrapper) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				for _, r := range f.mgr.Flush() {
					f.emitWindow(r)
				}
				return nil
			}
			f.processAggregate(ev)
		}
	}
}

// accept counts ev and applies the filter.
func (f *Flow) accept(ev dataset.EventWrapper) bool {
	f.metrics.Events.Inc()
	if f.filter == nil {
		return true
	}
	ok, err := f.filter.Match(ev)
	if err != nil {
		f.fail(err)
		return false
	}
	if !ok {
		f.metrics.Filtered.Inc()
	}
	return ok
}

func (f *Flow) processScalar(ev dataset.EventWrapper, cols []column) {
	if !f.accept(ev) {
		return
	}
	values := make(map[string]interface{}, len(cols))
	for _, c := range cols {
		v, err := c.expr.Eval(ev)
		if err != nil {
			f.fail(fmt.Errorf("column %s: %w", c.alias, err))
			return
		}
		values[c.alias] = v
	}
	f.emit(Result{Flow: f.spec.Name, Values: values})
}

func (f *Flow) processAggregate(ev dataset.EventWrapper) {
	if !f.accept(ev) {
		return
	}
	key, groupValues, err := f.groupKey(ev)
	if err != nil {
		f.fail(err)
		return
	}
	results, err := f.mgr.Add(ev, key, groupValues)
	if errors.Is(err, window.ErrLateEvent) {
		f.metrics.LateEvents.Inc()
		f.log.Debug("flow %s: late event at %s, watermark %s", f.spec.Name, ev.Timestamp().Format(time.RFC3339Nano), f.mgr.Watermark().Format(time.RFC3339Nano))
		return
	}
	if err != nil {
		f.fail(err)
		return
	}
	for _, r := range results {
		f.emitWindow(r)
	}
}

// groupKey evaluates the group-by fields. Each position holds one type, so
// the printed values identify the group.
func (f *Flow) groupKey(ev dataset.EventWrapper) (string, []interface{}, error) {
	if len(f.groupBy) == 0 {
		return "", nil, nil
	}
	values := make([]interface{}, len(f.groupBy))
	var sb strings.Builder
	for i, id := range f.groupBy {
		v, err := id.Eval(ev)
		if err != nil {
			return "", nil, fmt.Errorf("group by %s: %w", id.Name(), err)
		}
		values[i] = v
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		if v == nil {
			sb.WriteString("\x00")
		} else {
			fmt.Fprint(&sb, v)
		}
	}
	return sb.String(), values, nil
}

func (f *Flow) emitWindow(r window.Result) {
	if r.Err != nil {
		f.fail(fmt.Errorf("window [%s, %s): %w", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339), r.Err))
		return
	}
	ge := groupEvent{values: make(map[string]interface{}, len(f.groupBy)), ts: r.End}
	for i, id := range f.groupBy {
		ge.values[strings.ToLower(id.Name())] = r.GroupValues[i]
	}
	values := make(map[string]interface{}, len(f.columns))
	for _, c := range f.columns {
		if c.agg >= 0 {
			values[c.alias] = r.Values[c.agg]
			continue
		}
		v, err := c.expr.Eval(ge)
		if err != nil {
			f.fail(fmt.Errorf("column %s: %w", c.alias, err))
			return
		}
		values[c.alias] = v
	}
	f.metrics.WindowsEmitted.Inc()
	f.emit(Result{Flow: f.spec.Name, Values: values, WindowStart: r.Start, WindowEnd: r.End})
}

func (f *Flow) snapshotSinks() []sinkEntry {
	f.sinksMu.Lock()
	defer f.sinksMu.Unlock()
	return append([]sinkEntry(nil), f.sinks...)
}

func (f *Flow) emit(r Result) {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()
	for _, e := range f.snapshotSinks() {
		e.sink.OnResult(r)
	}
}

func (f *Flow) fail(err error) {
	f.metrics.EvalErrors.Inc()
	if f.warnLimit.Allow() {
		if n := f.suppressed.Swap(0); n > 0 {
			f.log.Warn("flow %s: dropping input: %v (%d similar warnings suppressed)", f.spec.Name, err, n)
		} else {
			f.log.Warn("flow %s: dropping input: %v", f.spec.Name, err)
		}
	} else {
		f.suppressed.Add(1)
	}
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()
	for _, e := range f.snapshotSinks() {
		e.sink.OnError(err)
	}
}

// groupEvent exposes the group-by values of a window to non-aggregate columns.
type groupEvent struct {
	values map[string]interface{}
	ts     time.Time
}

func (g groupEvent) Field(name string) (interface{}, bool) {
	v, ok := g.values[strings.ToLower(name)]
	return v, ok
}

func (g groupEvent) Timestamp() time.Time {
	return g.ts
}
