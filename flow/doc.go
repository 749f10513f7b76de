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
Package flow compiles and runs a single continuous query.

A Spec names a filter, a list of projections, optional group-by fields and
an optional window. Compile resolves every projection against a symbol table
once and decides the execution mode once:

  - scalar mode: each event that passes the filter produces one Result.
  - aggregate mode: events are accumulated into a window.Manager and one
    Result is produced per fired window and group.

Aggregate projections are calls bound to aggregate functions at the root of
a projection. Non-aggregate projections of an aggregate flow may read only
group-by fields; they are evaluated once per window result.

# Running

	f, err := flow.Compile(spec, tab, flow.WithRegisterer(reg, "flowsql"))
	if err != nil {
		return err
	}
	f.AddSink(flow.SinkFunc(func(r flow.Result) {
		fmt.Println(r.Values)
	}))
	err = f.Run(ctx, events)

A scalar flow with Workers > 1 runs that many goroutines, each with its own
clone of the projection tree; results are then unordered. Aggregate flows
always run on one goroutine. Sinks are never called concurrently.

# Errors

An event whose filter or projection fails is dropped; the error is logged
at WARN, counted in eval_errors_total and passed to every Sink.OnError.
Late events are counted in late_events_total.
*/
package flow
