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

/*
Package flowsql 是一个基于类型化表达式的流处理引擎。

每个流由过滤条件、投影表达式、可选的分组字段和窗口组成。投影表达式在部署时
解析一次：函数名经符号表查找（支持别名链），参数类型与函数签名统一，泛型类型
变量被确定为最小公共类型，实参在求值时按需转换。聚合函数在窗口内按 pane 累积，
窗口关闭时合并各 pane 的 bucket 得到结果。

# 核心特性

• 静态类型检查 - 未知函数、参数个数与类型错误在部署时报告，并给出相近函数名
• 泛型函数签名 - greatest(T, T) 等函数按实参类型统一
• 滚动与滑动窗口 - 基于事件时间和 watermark，迟到事件计数后丢弃
• 丰富的聚合函数 - count, sum, avg, min, max, stddev, count_distinct, approx_count_distinct 等
• Prometheus 指标 - 每个流的事件数、过滤数、求值错误、窗口输出与迟到事件
• 会话输出 - 流结果可推送到用户控制台会话，会话关闭后自动解除

# 入门示例

	engine, err := flowsql.New(flowsql.WithLogLevel(logger.WARN))
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	tab := engine.SymbolTable()
	tab.AddField("deviceId", types.String)
	tab.AddField("temperature", types.Float64)

	win, _ := window.NewConfig(window.TypeTumbling, "5s")
	_, err = engine.Deploy(flow.Spec{
		Name:   "avg_temp",
		Filter: "deviceId != 'device3'",
		Projections: []flow.Projection{
			{Alias: "deviceId", Expr: expr.NewIdent("deviceId")},
			{Alias: "avg_temp", Expr: expr.NewFnCallExpr("avg", expr.NewIdent("temperature"))},
		},
		GroupBy: []string{"deviceId"},
		Window:  &win,
	}, flow.SinkFunc(func(r flow.Result) {
		fmt.Println(r.Values)
	}))

	engine.Emit(ctx, map[string]interface{}{
		"deviceId":    "device1",
		"temperature": 25.5,
	}, time.Now())

# 配置

引擎配置可从 YAML 加载:

	log:
	  level: INFO
	  file:
	    filename: /var/log/flowsql.log
	    maxSizeMB: 100
	symbols:
	  maxAliasDepth: 16
	window:
	  maxOutOfOrder: 2s
	flow:
	  inputBuffer: 1024
	  workers: 1
	metrics:
	  namespace: flowsql

	cfg, err := flowsql.LoadConfig("flowsql.yaml")
	engine, err := flowsql.New(flowsql.WithConfig(cfg))

# 查询文本

引擎本身不解析 SQL。SubmitQuery 把查询文本交给通过 WithPlanner 注入的
exec.Planner，由它产生 flow.Spec。
*/
package flowsql
