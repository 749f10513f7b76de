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

package exec

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rulego/flowsql/dataset"
	"github.com/rulego/flowsql/flow"
	"github.com/rulego/flowsql/logger"
	"github.com/rulego/flowsql/session"
	"github.com/rulego/flowsql/symbol"
	"golang.org/x/sync/errgroup"
)

// DefaultInputBuffer is the capacity of each flow's input channel.
const DefaultInputBuffer = 1024

type runningFlow struct {
	id     FlowID
	flow   *flow.Flow
	in     chan dataset.EventWrapper
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// LocalEnvironment runs flows as goroutines of the current process.
type LocalEnvironment struct {
	tab         *symbol.Table
	planner     Planner
	log         logger.Logger
	reg         prometheus.Registerer
	namespace   string
	inputBuffer int
	sinks       []flow.Sink

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.RWMutex
	flows  map[FlowID]*runningFlow
	closed bool
}

// Option configures a LocalEnvironment.
type Option func(*LocalEnvironment)

func WithPlanner(p Planner) Option {
	return func(e *LocalEnvironment) {
		e.planner = p
	}
}

func WithLogger(l logger.Logger) Option {
	return func(e *LocalEnvironment) {
		e.log = l
	}
}

// WithRegisterer registers the counters of every deployed flow on reg.
func WithRegisterer(reg prometheus.Registerer, namespace string) Option {
	return func(e *LocalEnvironment) {
		e.reg = reg
		e.namespace = namespace
	}
}

// WithInputBuffer sets the capacity of each flow's input channel.
func WithInputBuffer(n int) Option {
	return func(e *LocalEnvironment) {
		if n > 0 {
			e.inputBuffer = n
		}
	}
}

// WithSink attaches s to every flow deployed afterwards.
func WithSink(s flow.Sink) Option {
	return func(e *LocalEnvironment) {
		e.sinks = append(e.sinks, s)
	}
}

// NewLocalEnvironment creates an environment resolving against tab.
func NewLocalEnvironment(tab *symbol.Table, opts ...Option) *LocalEnvironment {
	e := &LocalEnvironment{
		tab:         tab,
		log:         logger.GetDefault(),
		inputBuffer: DefaultInputBuffer,
		flows:       make(map[FlowID]*runningFlow),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tab == nil {
		e.tab = symbol.NewBuiltinTable()
	}
	// 流之间互不影响，一个流失败不取消其他流
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.group = &errgroup.Group{}
	return e
}

func (e *LocalEnvironment) EnvName() string {
	return "local"
}

// SymbolTable returns the table flows are resolved against.
func (e *LocalEnvironment) SymbolTable() *symbol.Table {
	return e.tab
}

func (e *LocalEnvironment) SubmitQuery(query string) (*QuerySubmitResponse, error) {
	if e.planner == nil {
		return nil, ErrNoPlanner
	}
	plan, err := e.planner.Plan(query, e.tab)
	if err != nil {
		return nil, err
	}
	resp := &QuerySubmitResponse{Message: plan.Message}
	if plan.Flow == nil {
		return resp, nil
	}
	id, err := e.AddFlow(*plan.Flow)
	if err != nil {
		return nil, err
	}
	resp.FlowID = &id
	if resp.Message == "" {
		resp.Message = fmt.Sprintf("Started flow: %s", id)
	}
	return resp, nil
}

// AddFlow 编译并启动一个流
func (e *LocalEnvironment) AddFlow(spec flow.Spec) (FlowID, error) {
	f, err := flow.Compile(spec, e.tab, flow.WithLogger(e.log), flow.WithRegisterer(e.reg, e.namespace))
	if err != nil {
		return FlowID{}, err
	}
	for _, s := range e.sinks {
		f.AddSink(s)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return FlowID{}, ErrDisconnected
	}
	rf := &runningFlow{
		id:   NewFlowID(),
		flow: f,
		in:   make(chan dataset.EventWrapper, e.inputBuffer),
		done: make(chan struct{}),
	}
	rf.ctx, rf.cancel = context.WithCancel(e.ctx)
	e.flows[rf.id] = rf
	e.group.Go(func() error {
		defer close(rf.done)
		err := f.Run(rf.ctx, rf.in)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		rf.err = err
		if err != nil {
			return fmt.Errorf("flow %s (%s): %w", spec.Name, rf.id, err)
		}
		return nil
	})
	e.log.Info("deployed flow %s as %s", spec.Name, rf.id)
	return rf.id, nil
}

// Flow returns the compiled flow behind id.
func (e *LocalEnvironment) Flow(id FlowID) (*flow.Flow, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rf, ok := e.flows[id]
	if !ok {
		return nil, false
	}
	return rf.flow, true
}

// Flows lists the ids of running flows sorted by id, which follows creation time.
func (e *LocalEnvironment) Flows() []FlowID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]FlowID, 0, len(e.flows))
	for id := range e.flows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Attach delivers the output of flow id to sess until the session closes.
func (e *LocalEnvironment) Attach(id FlowID, sess *session.UserSession) error {
	return e.attach(id, sess, func(*flow.Flow) session.Formatter { return nil })
}

// AttachTable is Attach with results rendered as grids in projection order.
func (e *LocalEnvironment) AttachTable(id FlowID, sess *session.UserSession) error {
	return e.attach(id, sess, func(f *flow.Flow) session.Formatter {
		schema := f.Schema()
		columns := make([]string, len(schema))
		for i, field := range schema {
			columns[i] = field.Name
		}
		return session.TableFormatter(columns)
	})
}

func (e *LocalEnvironment) attach(id FlowID, sess *session.UserSession, format func(*flow.Flow) session.Formatter) error {
	f, ok := e.Flow(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlow, id)
	}
	remove := f.AddSink(sess.Sink(format(f)))
	// 会话关闭时解除sink
	sess.Subscribe(func(*session.UserSession) { remove() })
	return nil
}

// Emit 将事件分发给所有运行中的流。
// It blocks while a flow's input buffer is full and returns early when ctx is done.
func (e *LocalEnvironment) Emit(ctx context.Context, ev dataset.EventWrapper) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrDisconnected
	}
	for _, rf := range e.flows {
		select {
		case rf.in <- ev:
		case <-rf.ctx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (e *LocalEnvironment) CancelFlow(id FlowID) error {
	e.mu.RLock()
	rf, ok := e.flows[id]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFlow, id)
	}
	// cancel before taking the write lock so blocked Emit calls return
	rf.cancel()
	e.mu.Lock()
	delete(e.flows, id)
	e.mu.Unlock()
	<-rf.done
	e.log.Info("cancelled flow %s", id)
	return rf.err
}

// Disconnect closes every flow input so windowed flows flush, then waits
// for all flows to exit. The first flow failure is returned.
func (e *LocalEnvironment) Disconnect() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for id, rf := range e.flows {
		close(rf.in)
		delete(e.flows, id)
	}
	e.mu.Unlock()
	err := e.group.Wait()
	e.cancel()
	e.log.Info("local environment disconnected")
	return err
}
