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

package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rulego/flowsql/flow"
	"github.com/rulego/flowsql/logger"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type countingCloser struct {
	closes atomic.Int32
	err    error
}

func (c *countingCloser) Close() error {
	c.closes.Add(1)
	return c.err
}

func newSession(t *testing.T, client Client, transport *countingCloser) *UserSession {
	s := New(client, transport)
	s.SetLogger(logger.NewDiscardLogger())
	return s
}

func TestSendInfoAndErr(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)
	gomock.InOrder(
		client.EXPECT().SendInfo("hello").Return(nil),
		client.EXPECT().SendErr("oops").Return(nil),
	)
	s := newSession(t, client, &countingCloser{})
	s.SendInfo("hello")
	s.SendErr("oops")
	assert.False(t, s.Closed())
}

// TestSendFailureClosesSession 发送失败后会话关闭，后续发送被忽略
func TestSendFailureClosesSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)
	client.EXPECT().SendInfo("first").Return(errors.New("broken pipe")).Times(1)

	transport := &countingCloser{}
	s := newSession(t, client, transport)
	var notified []*UserSession
	s.Subscribe(func(us *UserSession) { notified = append(notified, us) })

	s.SendInfo("first")
	assert.True(t, s.Closed())
	assert.Equal(t, int32(1), transport.closes.Load())
	require.Len(t, notified, 1)
	assert.Same(t, s, notified[0])

	// 已关闭，mock不再接受调用
	s.SendInfo("second")
	s.SendErr("third")
	require.NoError(t, s.Close())
	assert.Equal(t, int32(1), transport.closes.Load())
	assert.Len(t, notified, 1)
}

func TestCloseNotifiesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := &countingCloser{err: errors.New("already gone")}
	s := newSession(t, NewMockClient(ctrl), transport)

	var calls atomic.Int32
	s.Subscribe(func(*UserSession) { calls.Add(1) })
	s.Subscribe(func(*UserSession) { calls.Add(1) })

	assert.EqualError(t, s.Close(), "already gone")
	assert.NoError(t, s.Close())
	assert.Equal(t, int32(2), calls.Load())

	// 关闭后订阅立即回调
	late := false
	s.Subscribe(func(*UserSession) { late = true })
	assert.True(t, late)
}

func TestSessionWithoutTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	s := New(NewMockClient(ctrl), nil)
	s.SetLogger(logger.NewDiscardLogger())
	assert.NoError(t, s.Close())
	assert.Panics(t, func() { New(nil, nil) })
}

func TestEqual(t *testing.T) {
	ctrl := gomock.NewController(t)
	id := ksuid.New()
	a := NewWithID(id, NewMockClient(ctrl), nil)
	b := NewWithID(id, NewMockClient(ctrl), nil)
	c := New(NewMockClient(ctrl), nil)
	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
	assert.Equal(t, id, a.ID())
	assert.Equal(t, "session "+id.String(), a.String())
}

// TestConcurrentSendsAreSerialized 并发发送不会交叠
func TestConcurrentSendsAreSerialized(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)
	var inFlight, maxInFlight atomic.Int32
	client.EXPECT().SendInfo(gomock.Any()).DoAndReturn(func(string) error {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return nil
	}).Times(40)

	s := newSession(t, client, &countingCloser{})
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SendInfo("x")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestSink(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := NewMockClient(ctrl)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	gomock.InOrder(
		client.EXPECT().SendInfo("alerts [2025-01-01T00:00:00Z, 2025-01-01T00:00:10Z): cnt=3, device=d1, max=NULL").Return(nil),
		client.EXPECT().SendErr("evaluating upper: bad").Return(nil),
		client.EXPECT().SendInfo("custom").Return(nil),
	)
	s := newSession(t, client, &countingCloser{})

	sink := s.Sink(nil)
	sink.OnResult(flow.Result{
		Flow:        "alerts",
		Values:      map[string]interface{}{"device": "d1", "cnt": int64(3), "max": nil},
		WindowStart: start,
		WindowEnd:   start.Add(10 * time.Second),
	})
	sink.OnError(errors.New("evaluating upper: bad"))
	s.Sink(func(flow.Result) string { return "custom" }).OnResult(flow.Result{})
}

func TestFormatScalarResult(t *testing.T) {
	assert.Equal(t, "f: a=1, b=x", FormatResult(flow.Result{Flow: "f", Values: map[string]interface{}{"b": "x", "a": 1}}))
}

func TestTableFormatter(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	format := TableFormatter([]string{"device", "cnt"})
	got := format(flow.Result{
		Flow:        "alerts",
		Values:      map[string]interface{}{"device": "d1", "cnt": int64(3)},
		WindowStart: start,
		WindowEnd:   start.Add(10 * time.Second),
	})
	want := "alerts [2025-01-01T00:00:00Z, 2025-01-01T00:00:10Z)\n" +
		"+--------+------+\n" +
		"| device | cnt  |\n" +
		"+--------+------+\n" +
		"| d1     | 3    |\n" +
		"+--------+------+\n" +
		"(1 rows)\n"
	assert.Equal(t, want, got)
}
