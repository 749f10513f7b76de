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
Package window provides event-time windows for FlowSQL aggregate flows.

# Window Types

	Tumbling - non-overlapping windows of a fixed size
	Sliding  - overlapping windows of a fixed size that start every slide

Both are built from panes: non-overlapping slices of width slide aligned to the
epoch. A tumbling window is one pane; a sliding window of size 10s and slide 5s
is two consecutive panes. Every aggregate call site owns one bucket per pane,
so an event is accumulated exactly once however many windows contain it.

	cfg, _ := window.NewConfig(window.TypeSliding, "10s", "5s")
	cfg.MaxOutOfOrder = 2 * time.Second
	mgr, _ := window.NewManager(cfg, []window.Accumulator{countCall, sumCall})

	results, err := mgr.Add(event, groupKey, groupValues)

# Watermark

The watermark is the newest event time seen minus MaxOutOfOrder. A window
fires when the watermark reaches its end; the buckets of its panes are handed
to FinishWindow ordered by pane start. An event whose panes have all fired is
dropped with ErrLateEvent and counted by LateEvents. Flush fires whatever is
left when the input ends.
*/
package window
