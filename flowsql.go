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
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rulego/flowsql/dataset"
	"github.com/rulego/flowsql/exec"
	"github.com/rulego/flowsql/flow"
	"github.com/rulego/flowsql/logger"
	"github.com/rulego/flowsql/session"
	"github.com/rulego/flowsql/symbol"
)

// Engine 是flowsql的入口，持有符号表和本地执行环境。
//
// 使用示例:
//
//	engine, err := flowsql.New(flowsql.WithConfig(cfg))
//	id, err := engine.Deploy(spec)
//	engine.Emit(ctx, map[string]interface{}{"deviceId": "d1", "temperature": 25.0}, time.Now())
//	defer engine.Close()
type Engine struct {
	cfg     Config
	log     logger.Logger
	tab     *symbol.Table
	planner exec.Planner
	reg     prometheus.Registerer
	env     *exec.LocalEnvironment

	closeLog func() error
}

// New 创建一个新的Engine实例。
//
// 日志的选择顺序: WithLogger/WithLogOutput/WithDiscardLog 优先，其次是配置中的
// log.file，最后是按log.level输出到标准错误的默认日志。
func New(options ...Option) (*Engine, error) {
	e := &Engine{cfg: DefaultConfig()}
	for _, opt := range options {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := e.initLogger(); err != nil {
		return nil, err
	}
	if e.tab == nil {
		e.tab = symbol.NewBuiltinTable(symbol.WithMaxAliasDepth(e.cfg.Symbols.MaxAliasDepth)).Child()
	}

	envOpts := []exec.Option{
		exec.WithLogger(e.log),
		exec.WithInputBuffer(e.cfg.Flow.InputBuffer),
		exec.WithRegisterer(e.reg, e.cfg.Metrics.Namespace),
	}
	if e.planner != nil {
		envOpts = append(envOpts, exec.WithPlanner(e.withDefaults(e.planner)))
	}
	e.env = exec.NewLocalEnvironment(e.tab, envOpts...)
	return e, nil
}

func (e *Engine) initLogger() error {
	if e.log != nil {
		return nil
	}
	level, err := logger.ParseLevel(e.cfg.Log.Level)
	if err != nil {
		return err
	}
	if e.cfg.Log.File != nil {
		fileCfg := *e.cfg.Log.File
		if fileCfg.Level == "" {
			fileCfg.Level = level.String()
		}
		l, closeFn, err := logger.NewFileLogger(fileCfg)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		e.log, e.closeLog = l, closeFn
		return nil
	}
	e.log = logger.NewLogger(level, os.Stderr)
	return nil
}

// withDefaults applies the configured defaults to every planned flow.
func (e *Engine) withDefaults(p exec.Planner) exec.Planner {
	return exec.PlannerFunc(func(query string, tab *symbol.Table) (exec.Plan, error) {
		plan, err := p.Plan(query, tab)
		if err != nil || plan.Flow == nil {
			return plan, err
		}
		spec := e.cfg.applyDefaults(*plan.Flow)
		plan.Flow = &spec
		return plan, nil
	})
}

// Config returns the validated configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Logger returns the engine logger.
func (e *Engine) Logger() logger.Logger {
	return e.log
}

// SymbolTable returns the scope flows resolve against. Fields and custom
// functions registered here become visible to flows deployed afterwards.
func (e *Engine) SymbolTable() *symbol.Table {
	return e.tab
}

// Environment exposes the underlying local environment.
func (e *Engine) Environment() *exec.LocalEnvironment {
	return e.env
}

// Deploy 编译并启动一个流，未设置的worker数和乱序容忍度取自配置。
func (e *Engine) Deploy(spec flow.Spec, sinks ...flow.Sink) (exec.FlowID, error) {
	id, err := e.env.AddFlow(e.cfg.applyDefaults(spec))
	if err != nil {
		return exec.FlowID{}, err
	}
	if len(sinks) > 0 {
		f, _ := e.env.Flow(id)
		for _, s := range sinks {
			f.AddSink(s)
		}
	}
	return id, nil
}

// SubmitQuery plans query with the configured planner and deploys the
// resulting flow, if any.
func (e *Engine) SubmitQuery(query string) (*exec.QuerySubmitResponse, error) {
	return e.env.SubmitQuery(query)
}

// Cancel stops a deployed flow.
func (e *Engine) Cancel(id exec.FlowID) error {
	return e.env.CancelFlow(id)
}

// Attach streams the output of flow id to sess until sess closes.
func (e *Engine) Attach(id exec.FlowID, sess *session.UserSession) error {
	return e.env.Attach(id, sess)
}

// Emit 添加一条数据到所有运行中的流，ts为事件时间。
//
// 示例:
//
//	engine.Emit(ctx, map[string]interface{}{
//		"deviceId":    "sensor001",
//		"temperature": 25.5,
//	}, time.Now())
func (e *Engine) Emit(ctx context.Context, data map[string]interface{}, ts time.Time) error {
	return e.env.Emit(ctx, dataset.NewMapEvent(data, ts))
}

// EmitEvent adds an event of any EventWrapper implementation.
func (e *Engine) EmitEvent(ctx context.Context, ev dataset.EventWrapper) error {
	return e.env.Emit(ctx, ev)
}

// Close 停止所有流并等待窗口刷新完成，随后关闭日志文件。
func (e *Engine) Close() error {
	err := e.env.Disconnect()
	if e.closeLog != nil {
		err = errors.Join(err, e.closeLog())
		e.closeLog = nil
	}
	return err
}
