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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rulego/flowsql/exec"
	"github.com/rulego/flowsql/expr"
	"github.com/rulego/flowsql/flow"
	"github.com/rulego/flowsql/logger"
	"github.com/rulego/flowsql/symbol"
	"github.com/rulego/flowsql/types"
	"github.com/rulego/flowsql/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type results struct {
	mu   sync.Mutex
	rows []flow.Result
}

func (r *results) OnResult(res flow.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, res)
}

func (r *results) OnError(error) {}

func (r *results) all() []flow.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]flow.Result(nil), r.rows...)
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	e, err := New(append([]Option{WithDiscardLog()}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, e.SymbolTable().AddField("deviceId", types.String))
	require.NoError(t, e.SymbolTable().AddField("temperature", types.Float64))
	return e
}

func TestEngineWindowedAverage(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newEngine(t, WithRegisterer(reg))

	win, err := window.NewConfig(window.TypeTumbling, "5s")
	require.NoError(t, err)
	out := &results{}
	_, err = e.Deploy(flow.Spec{
		Name:   "avg_temp",
		Filter: "deviceId != 'device3'",
		Projections: []flow.Projection{
			{Alias: "deviceId", Expr: expr.NewIdent("deviceId")},
			{Alias: "avg", Expr: expr.NewFnCallExpr("avg", expr.NewIdent("temperature"))},
		},
		GroupBy: []string{"deviceId"},
		Window:  &win,
	}, out)
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, row := range []map[string]interface{}{
		{"deviceId": "device1", "temperature": 20.0},
		{"deviceId": "device3", "temperature": 99.0},
		{"deviceId": "device1", "temperature": 30.0},
	} {
		require.NoError(t, e.Emit(ctx, row, base.Add(time.Duration(i)*time.Second)))
	}
	require.NoError(t, e.Close())

	rows := out.all()
	require.Len(t, rows, 1)
	assert.Equal(t, "device1", rows[0].Values["deviceId"])
	assert.Equal(t, 25.0, rows[0].Values["avg"])
	assert.Equal(t, base, rows[0].WindowStart)
	assert.Equal(t, base.Add(5*time.Second), rows[0].WindowEnd)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

// TestEnginePlannerGetsDefaults 规划出的流同样应用配置默认值
func TestEnginePlannerGetsDefaults(t *testing.T) {
	var planned *flow.Spec
	planner := exec.PlannerFunc(func(query string, tab *symbol.Table) (exec.Plan, error) {
		planned = &flow.Spec{
			Name:        "upper",
			Projections: []flow.Projection{{Alias: "d", Expr: expr.NewFnCallExpr("upper", expr.NewIdent("deviceId"))}},
		}
		return exec.Plan{Flow: planned}, nil
	})
	cfg := DefaultConfig()
	cfg.Flow.Workers = 3
	e := newEngine(t, WithConfig(cfg), WithDiscardLog(), WithPlanner(planner))
	defer e.Close()

	resp, err := e.SubmitQuery("select upper(deviceId)")
	require.NoError(t, err)
	require.NotNil(t, resp.FlowID)
	f, ok := e.Environment().Flow(*resp.FlowID)
	require.True(t, ok)
	assert.Equal(t, 3, f.Spec().Workers)
	assert.Equal(t, 0, planned.Workers)

	require.NoError(t, e.Cancel(*resp.FlowID))
	assert.ErrorIs(t, e.Cancel(*resp.FlowID), exec.ErrUnknownFlow)
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Flow.InputBuffer = 0
	_, err := New(WithConfig(cfg))
	assert.ErrorContains(t, err, "flow.inputBuffer")
}

func TestEngineFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	cfg := DefaultConfig()
	cfg.Log.Level = "WARN"
	cfg.Log.File = &logger.FileConfig{Filename: path}
	e, err := New(WithConfig(cfg))
	require.NoError(t, err)

	e.Logger().Info("hidden")
	e.Logger().Warn("flow %s is slow", "f1")
	require.NoError(t, e.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var msgs []string
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		msgs = append(msgs, entry["msg"].(string))
	}
	assert.Contains(t, msgs, "flow f1 is slow")
	assert.NotContains(t, msgs, "hidden")
}

func TestEngineLogOptions(t *testing.T) {
	var buf bytes.Buffer
	e, err := New(WithLogOutput(&buf, logger.DEBUG))
	require.NoError(t, err)
	e.Logger().Debug("debug line")
	require.NoError(t, e.Close())
	assert.Contains(t, buf.String(), "debug line")

	e, err = New(WithLogLevel(logger.ERROR), WithLogOutput(&buf, logger.ERROR))
	require.NoError(t, err)
	assert.Equal(t, "ERROR", e.Config().Log.Level)
	require.NoError(t, e.Close())
}
