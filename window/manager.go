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

package window

import (
	"errors"
	"sort"
	"time"

	"github.com/rulego/flowsql/dataset"
	"github.com/rulego/flowsql/functions"
)

// ErrLateEvent is returned by Add for an event whose windows have all fired.
var ErrLateEvent = errors.New("late event")

// Accumulator is an aggregate call site driven by a Manager.
// *expr.FnCallExpr bound to an aggregate satisfies it.
type Accumulator interface {
	NewBucket() *functions.Bucket
	Accumulate(ev dataset.EventWrapper, bucket *functions.Bucket) error
	FinishWindow(buckets []*functions.Bucket) (interface{}, error)
}

// Result 一个窗口的输出
type Result struct {
	Key         string
	GroupValues []interface{}
	Start       time.Time
	End         time.Time
	// Values holds one value per accumulator, in registration order.
	Values []interface{}
	// Events counts the events accumulated into the window.
	Events int64
	// Err is set when an accumulator failed to finish the window.
	Err error
}

// pane 宽度为slide的分片，每个聚合调用点一个桶
type pane struct {
	start   time.Time
	buckets []*functions.Bucket
	events  int64
}

type group struct {
	key    string
	values []interface{}
	panes  map[int64]*pane
	// next is the start of the earliest window of this group not yet fired.
	next time.Time
	// lastStart is the start of the latest fired window, valid when fired.
	lastStart time.Time
	fired     bool
}

// Manager 基于分片的事件时间窗口管理器。
//
// Events are routed to the pane of width Slide that contains their event
// time; a window is the run of Size/Slide consecutive panes. A window fires
// once the watermark reaches its end, and its finalize step receives the
// window's buckets ordered by pane start. A pane is sealed and dropped after
// the last window containing it has fired; events for dropped panes are late.
//
// A Manager is not safe for concurrent use.
type Manager struct {
	cfg    Config
	accs   []Accumulator
	wm     *Watermark
	groups map[string]*group
	late   int64
}

// NewManager creates a manager for the given accumulators.
func NewManager(cfg Config, accs []Accumulator) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:    cfg,
		accs:   accs,
		wm:     NewWatermark(cfg.MaxOutOfOrder),
		groups: make(map[string]*group),
	}, nil
}

// Config returns the validated configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Watermark returns the current watermark.
func (m *Manager) Watermark() time.Time {
	return m.wm.Current()
}

// LateEvents returns how many events were dropped as late.
func (m *Manager) LateEvents() int64 {
	return m.late
}

// OpenPanes returns the number of live panes across all groups.
func (m *Manager) OpenPanes() int {
	n := 0
	for _, g := range m.groups {
		n += len(g.panes)
	}
	return n
}

// Add accumulates ev into its pane for the group identified by key, then
// fires every window the advanced watermark has passed. groupValues is
// copied into the results of the group.
func (m *Manager) Add(ev dataset.EventWrapper, key string, groupValues []interface{}) ([]Result, error) {
	ts := ev.Timestamp()
	paneStart := alignWindowStart(ts, m.cfg.Slide)
	if m.wm.Passed(paneStart.Add(m.cfg.Size)) {
		m.late++
		return nil, ErrLateEvent
	}

	g, ok := m.groups[key]
	if !ok {
		g = &group{
			key:    key,
			values: groupValues,
			panes:  make(map[int64]*pane),
			next:   m.firstWindowStart(paneStart),
		}
		m.groups[key] = g
	}
	p, ok := g.panes[paneStart.UnixNano()]
	if !ok {
		p = &pane{start: paneStart, buckets: make([]*functions.Bucket, len(m.accs))}
		for i, acc := range m.accs {
			p.buckets[i] = acc.NewBucket()
		}
		g.panes[paneStart.UnixNano()] = p
		// 新分片所在的未触发窗口可能早于next
		first := m.firstWindowStart(paneStart)
		if g.fired && !first.After(g.lastStart) {
			first = g.lastStart.Add(m.cfg.Slide)
		}
		if first.Before(g.next) {
			g.next = first
		}
	}
	for i, acc := range m.accs {
		if err := acc.Accumulate(ev, p.buckets[i]); err != nil {
			return nil, err
		}
	}
	p.events++

	if !m.wm.UpdateEventTime(ts) {
		return nil, nil
	}
	return m.fire(false), nil
}

// Flush fires every window that still holds events, ignoring the watermark.
func (m *Manager) Flush() []Result {
	return m.fire(true)
}

// firstWindowStart returns the start of the earliest window containing the pane.
func (m *Manager) firstWindowStart(paneStart time.Time) time.Time {
	return paneStart.Add(m.cfg.Slide - m.cfg.Size)
}

func (m *Manager) fire(all bool) []Result {
	keys := make([]string, 0, len(m.groups))
	for k := range m.groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Result
	for _, k := range keys {
		g := m.groups[k]
		for len(g.panes) > 0 {
			if earliest := m.firstWindowStart(g.earliestPane()); g.next.Before(earliest) {
				g.next = earliest
			}
			end := g.next.Add(m.cfg.Size)
			if !all && !m.wm.Passed(end) {
				break
			}
			if r, ok := m.finish(g, g.next, end); ok {
				out = append(out, r)
			}
			g.fired = true
			g.lastStart = g.next
			g.next = g.next.Add(m.cfg.Slide)
		}
		if len(g.panes) == 0 && m.wm.Passed(g.lastStart.Add(2*m.cfg.Size-m.cfg.Slide)) {
			// 之后任何未迟到的事件都不会落入已触发的窗口
			delete(m.groups, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].End.Before(out[j].End) })
	return out
}

func (g *group) earliestPane() time.Time {
	var lo int64
	first := true
	for start := range g.panes {
		if first || start < lo {
			lo = start
			first = false
		}
	}
	return time.Unix(0, lo).UTC()
}

// finish reduces the panes of [start, end). The first pane of the window is
// in no later window, so it is sealed before finalizing and dropped after.
func (m *Manager) finish(g *group, start, end time.Time) (Result, bool) {
	var panes []*pane
	for t := start; t.Before(end); t = t.Add(m.cfg.Slide) {
		if p, ok := g.panes[t.UnixNano()]; ok {
			panes = append(panes, p)
		}
	}
	first, hasFirst := g.panes[start.UnixNano()]
	if hasFirst {
		for _, b := range first.buckets {
			b.Seal()
		}
		defer delete(g.panes, start.UnixNano())
	}
	if len(panes) == 0 {
		return Result{}, false
	}

	r := Result{
		Key:         g.key,
		GroupValues: g.values,
		Start:       start,
		End:         end,
		Values:      make([]interface{}, len(m.accs)),
	}
	buckets := make([]*functions.Bucket, len(panes))
	for i, acc := range m.accs {
		for j, p := range panes {
			buckets[j] = p.buckets[i]
		}
		v, err := acc.FinishWindow(buckets)
		if err != nil {
			r.Err = err
			return r, true
		}
		r.Values[i] = v
	}
	for _, p := range panes {
		r.Events += p.events
	}
	return r, true
}
