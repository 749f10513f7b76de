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
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rulego/flowsql/dataset"
	"github.com/rulego/flowsql/expr"
	"github.com/rulego/flowsql/logger"
	"github.com/rulego/flowsql/symbol"
	"github.com/rulego/flowsql/types"
	"github.com/rulego/flowsql/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sensorTable(t *testing.T) *symbol.Table {
	tab := symbol.NewBuiltinTable().Child()
	require.NoError(t, tab.AddField("deviceId", types.String))
	require.NoError(t, tab.AddField("temperature", types.Float64))
	require.NoError(t, tab.AddField("name", types.String))
	require.NoError(t, tab.AddField("level", types.Int32))
	return tab
}

func reading(atSec float64, device string, temp float64) dataset.EventWrapper {
	return dataset.NewMapEvent(map[string]interface{}{
		"deviceId":    device,
		"temperature": temp,
	}, time.UnixMilli(int64(atSec*1000)))
}

// collector 记录sink收到的结果和错误
type collector struct {
	mu      sync.Mutex
	results []Result
	errs    []error
}

func (c *collector) OnResult(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	var families []*dto.MetricFamily
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	return 0
}

func run(t *testing.T, f *Flow, events ...dataset.EventWrapper) *collector {
	c := &collector{}
	f.AddSink(c)
	in := make(chan dataset.EventWrapper, len(events))
	for _, ev := range events {
		in <- ev
	}
	close(in)
	require.NoError(t, f.Run(context.Background(), in))
	return c
}

func tumbling(t *testing.T, size string) *window.Config {
	cfg, err := window.NewConfig(window.TypeTumbling, size)
	require.NoError(t, err)
	return &cfg
}

func TestScalarFlow(t *testing.T) {
	tab := sensorTable(t)
	script, err := expr.NewScript("temperature * 1.8 + 32", types.Float64)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()

	f, err := Compile(Spec{
		Name:   "fahrenheit",
		Filter: "temperature > 20",
		Projections: []Projection{
			{Alias: "device", Expr: expr.NewFnCallExpr("upper", expr.NewIdent("deviceId"))},
			{Alias: "f", Expr: script},
		},
	}, tab, WithRegisterer(reg, "test"), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	assert.Equal(t, ModeScalar, f.Mode())
	assert.Equal(t, "fahrenheit", f.Name())
	assert.Equal(t, []types.TypedField{{Name: "device", Type: types.String}, {Name: "f", Type: types.Float64}}, f.Schema())
	assert.Len(t, f.RequiredFields(), 2)

	c := run(t, f, reading(1, "a1", 25), reading(2, "a2", 10), reading(3, "a3", 30))
	require.Len(t, c.results, 2)
	assert.Equal(t, "A1", c.results[0].Values["device"])
	assert.InDelta(t, 77.0, c.results[0].Values["f"], 1e-9)
	assert.True(t, c.results[0].WindowStart.IsZero())
	assert.Equal(t, "fahrenheit", c.results[1].Flow)
	assert.InDelta(t, 86.0, c.results[1].Values["f"], 1e-9)
	assert.Empty(t, c.errs)

	assert.Equal(t, 3.0, counterValue(t, reg, "test_flow_events_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "test_flow_events_filtered_total"))
	assert.Equal(t, 0.0, counterValue(t, reg, "test_flow_eval_errors_total"))
}

// TestAggregateFlow 按设备分组的滚动窗口
func TestAggregateFlow(t *testing.T) {
	tab := sensorTable(t)
	reg := prometheus.NewRegistry()
	f, err := Compile(Spec{
		Name: "per_device",
		Projections: []Projection{
			{Alias: "deviceId", Expr: expr.NewIdent("deviceId")},
			{Alias: "device", Expr: expr.NewFnCallExpr("upper", expr.NewIdent("DEVICEID"))},
			{Alias: "cnt", Expr: expr.NewFnCallExpr("count", expr.NewIdent("temperature"))},
			{Alias: "avg_temp", Expr: expr.NewFnCallExpr("avg", expr.NewIdent("temperature"))},
		},
		GroupBy: []string{"deviceId"},
		Window:  tumbling(t, "10s"),
		Workers: 4,
	}, tab, WithRegisterer(reg, ""), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	assert.Equal(t, ModeAggregate, f.Mode())

	c := run(t, f,
		reading(1, "d1", 20),
		reading(2, "d2", 30),
		reading(5, "d1", 24),
		reading(12, "d1", 10),
	)
	require.Len(t, c.results, 3)

	first := c.results[0]
	assert.Equal(t, "d1", first.Values["deviceId"])
	assert.Equal(t, "D1", first.Values["device"])
	assert.Equal(t, int64(2), first.Values["cnt"])
	assert.Equal(t, 22.0, first.Values["avg_temp"])
	assert.Equal(t, time.UnixMilli(0).UTC(), first.WindowStart)
	assert.Equal(t, time.UnixMilli(10000).UTC(), first.WindowEnd)

	assert.Equal(t, "d2", c.results[1].Values["deviceId"])
	assert.Equal(t, int64(1), c.results[1].Values["cnt"])

	last := c.results[2]
	assert.Equal(t, "d1", last.Values["deviceId"])
	assert.Equal(t, 10.0, last.Values["avg_temp"])
	assert.Equal(t, time.UnixMilli(20000).UTC(), last.WindowEnd)

	assert.Equal(t, 3.0, counterValue(t, reg, "flowsql_flow_windows_emitted_total"))
}

func TestLateEventsAreCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	f, err := Compile(Spec{
		Name:        "late",
		Projections: []Projection{{Alias: "n", Expr: expr.NewFnCallExpr("count", expr.NewIdent("temperature"))}},
		Window:      tumbling(t, "10s"),
	}, sensorTable(t), WithRegisterer(reg, ""), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	c := run(t, f, reading(1, "a", 1), reading(25, "a", 1), reading(3, "a", 1))
	require.Len(t, c.results, 2)
	assert.Equal(t, int64(1), c.results[0].Values["n"])
	assert.Equal(t, 1.0, counterValue(t, reg, "flowsql_flow_late_events_total"))
}

func TestEvalErrorsReachSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	f, err := Compile(Spec{
		Name:        "parse",
		Projections: []Projection{{Alias: "ts", Expr: expr.NewFnCallExpr("to_timestamp", expr.NewIdent("name"))}},
	}, sensorTable(t), WithRegisterer(reg, ""), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	good := dataset.NewMapEvent(map[string]interface{}{"name": "2024-03-01 10:00:00"}, time.Now())
	bad := dataset.NewMapEvent(map[string]interface{}{"name": "not a date"}, time.Now())
	c := run(t, f, good, bad)

	require.Len(t, c.results, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), c.results[0].Values["ts"])
	require.Len(t, c.errs, 1)
	var evalErr *expr.EvalError
	require.True(t, errors.As(c.errs[0], &evalErr))
	assert.Equal(t, "to_timestamp", evalErr.Function)
	assert.Equal(t, 1.0, counterValue(t, reg, "flowsql_flow_eval_errors_total"))
}

// TestParallelScalarWorkers 多个worker各自持有克隆的调用节点
func TestParallelScalarWorkers(t *testing.T) {
	f, err := Compile(Spec{
		Name: "parallel",
		Projections: []Projection{
			{Alias: "tag", Expr: expr.NewFnCallExpr("concat", expr.NewIdent("name"), expr.NewConst("!"))},
			{Alias: "hi", Expr: expr.NewFnCallExpr("greatest", expr.NewIdent("level"), expr.NewConst(int64(50)))},
		},
		Workers: 4,
	}, sensorTable(t), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	var events []dataset.EventWrapper
	for i := 0; i < 200; i++ {
		events = append(events, dataset.NewMapEvent(map[string]interface{}{
			"name":  fmt.Sprintf("n%d", i),
			"level": int32(i),
		}, time.UnixMilli(int64(i))))
	}
	c := run(t, f, events...)
	require.Len(t, c.results, 200)

	seen := make(map[string]int64)
	for _, r := range c.results {
		seen[r.Values["tag"].(string)] = r.Values["hi"].(int64)
	}
	require.Len(t, seen, 200)
	assert.Equal(t, int64(50), seen["n3!"])
	assert.Equal(t, int64(199), seen["n199!"])
}

func TestCompileErrors(t *testing.T) {
	tab := sensorTable(t)
	count := func() expr.Expr { return expr.NewFnCallExpr("count", expr.NewIdent("temperature")) }
	tests := []struct {
		name string
		spec Spec
		is   error
	}{
		{"no name", Spec{Projections: []Projection{{Expr: expr.NewIdent("name")}}}, ErrInvalidSpec},
		{"no projections", Spec{Name: "x"}, ErrInvalidSpec},
		{"aggregate without window", Spec{Name: "x", Projections: []Projection{{Expr: count()}}}, ErrInvalidSpec},
		{"window without aggregate", Spec{Name: "x", Projections: []Projection{{Expr: expr.NewIdent("name")}}, Window: tumbling(t, "5s")}, ErrInvalidSpec},
		{"group by without aggregate", Spec{Name: "x", Projections: []Projection{{Expr: expr.NewIdent("name")}}, GroupBy: []string{"name"}}, ErrInvalidSpec},
		{"ungrouped column", Spec{Name: "x", Projections: []Projection{{Expr: expr.NewIdent("name")}, {Expr: count()}}, Window: tumbling(t, "5s")}, ErrInvalidSpec},
		{"nested aggregate", Spec{Name: "x", Projections: []Projection{{Expr: expr.NewFnCallExpr("abs", expr.NewFnCallExpr("sum", expr.NewIdent("level")))}}, Window: tumbling(t, "5s")}, ErrInvalidSpec},
		{"duplicate alias", Spec{Name: "x", Projections: []Projection{{Alias: "a", Expr: expr.NewIdent("name")}, {Alias: "A", Expr: expr.NewIdent("level")}}}, ErrInvalidSpec},
		{"bad filter", Spec{Name: "x", Filter: "level >", Projections: []Projection{{Expr: expr.NewIdent("name")}}}, ErrInvalidSpec},
		{"unknown function", Spec{Name: "x", Projections: []Projection{{Expr: expr.NewFnCallExpr("uper", expr.NewIdent("name"))}}}, expr.ErrUnknownFunction},
		{"unknown group field", Spec{Name: "x", Projections: []Projection{{Expr: count()}}, GroupBy: []string{"room"}, Window: tumbling(t, "5s")}, expr.ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.spec, tab, WithLogger(logger.NewDiscardLogger()))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.is), "got %v", err)
		})
	}
}

func TestRunOnceAndCancel(t *testing.T) {
	f, err := Compile(Spec{
		Name:        "cancel",
		Projections: []Projection{{Expr: expr.NewIdent("name")}},
		Workers:     2,
	}, sensorTable(t), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan dataset.EventWrapper)
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, in) }()

	in <- dataset.NewMapEvent(map[string]interface{}{"name": "x"}, time.Now())
	assert.ErrorIs(t, f.Run(ctx, in), ErrAlreadyRunning)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("flow did not stop")
	}
}

func TestMetricsReuseRegisteredCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewMetrics(reg, "x", "same")
	require.NoError(t, err)
	b, err := NewMetrics(reg, "x", "same")
	require.NoError(t, err)
	a.Events.Inc()
	b.Events.Inc()
	assert.Equal(t, 2.0, counterValue(t, reg, "x_flow_events_total"))

	m, err := NewMetrics(nil, "", "free")
	require.NoError(t, err)
	m.LateEvents.Inc()
}

// TestSinkRemovesItself sink在回调中注销自己不会死锁
func TestSinkRemovesItself(t *testing.T) {
	f, err := Compile(Spec{
		Name:        "once",
		Projections: []Projection{{Expr: expr.NewIdent("name")}},
	}, sensorTable(t), WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	var got []Result
	var remove func()
	remove = f.AddSink(SinkFunc(func(r Result) {
		got = append(got, r)
		remove()
	}))
	c := run(t, f,
		dataset.NewMapEvent(map[string]interface{}{"name": "a"}, time.Now()),
		dataset.NewMapEvent(map[string]interface{}{"name": "b"}, time.Now()),
	)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Values["name"])
	assert.Len(t, c.results, 2)
}

// TestErrorLogIsRateLimited 警告日志限流，但计数和sink投递不受影响
func TestErrorLogIsRateLimited(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	f, err := Compile(Spec{
		Name:        "noisy",
		Projections: []Projection{{Alias: "ts", Expr: expr.NewFnCallExpr("to_timestamp", expr.NewIdent("name"))}},
	}, sensorTable(t), WithRegisterer(reg, ""), WithLogger(logger.NewLogger(logger.WARN, &buf)), WithErrorLogRate(0, 1))
	require.NoError(t, err)

	var events []dataset.EventWrapper
	for i := 0; i < 3; i++ {
		events = append(events, dataset.NewMapEvent(map[string]interface{}{"name": "garbage"}, time.Now()))
	}
	c := run(t, f, events...)
	assert.Len(t, c.errs, 3)
	assert.Equal(t, 3.0, counterValue(t, reg, "flowsql_flow_eval_errors_total"))
	assert.Equal(t, 1, strings.Count(buf.String(), "dropping input"))
}
