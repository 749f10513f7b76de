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
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rulego/flowsql/exec"
	"github.com/rulego/flowsql/logger"
	"github.com/rulego/flowsql/symbol"
)

// Option 表示对Engine默认行为的修改配置。
type Option func(*Engine)

// WithLogger 设置自定义日志记录器。
// 设置后配置中的日志级别和日志文件不再生效。
//
// 示例:
//
//	customLogger := logger.NewLogger(logger.DEBUG, os.Stderr)
//	engine, _ := flowsql.New(flowsql.WithLogger(customLogger))
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithLogLevel 设置日志级别，覆盖配置中的log.level。
//
// 参数:
//   - level: 日志级别，可选值：DEBUG, INFO, WARN, ERROR, OFF
func WithLogLevel(level logger.Level) Option {
	return func(e *Engine) {
		e.cfg.Log.Level = level.String()
	}
}

// WithLogOutput 设置日志输出目标。
//
// 示例:
//
//	logFile, _ := os.OpenFile("flowsql.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
//	engine, _ := flowsql.New(flowsql.WithLogOutput(logFile, logger.INFO))
func WithLogOutput(output io.Writer, level logger.Level) Option {
	return func(e *Engine) {
		e.log = logger.NewLogger(level, output)
	}
}

// WithDiscardLog 禁用日志输出。
func WithDiscardLog() Option {
	return func(e *Engine) {
		e.log = logger.NewDiscardLogger()
	}
}

// WithConfig 使用给定配置替换默认配置。
// 配置在New中校验，应放在其他选项之前。
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithSymbolTable 使用调用方提供的符号表，字段和自定义函数由调用方注册。
func WithSymbolTable(tab *symbol.Table) Option {
	return func(e *Engine) {
		e.tab = tab
	}
}

// WithPlanner 设置查询规划器，SubmitQuery依赖它把查询文本转换为流。
func WithPlanner(p exec.Planner) Option {
	return func(e *Engine) {
		e.planner = p
	}
}

// WithRegisterer 设置Prometheus注册器，每个流的计数器注册在其上。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.reg = reg
	}
}
