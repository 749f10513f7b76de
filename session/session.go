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

// Package session holds the connection state of one user console.
package session

//go:generate mockgen -destination=mock_client_test.go -package=session . Client

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rulego/flowsql/flow"
	"github.com/rulego/flowsql/logger"
	"github.com/rulego/flowsql/utils/table"
	"github.com/segmentio/ksuid"
)

// Client is the callback connection to the user's console.
type Client interface {
	SendInfo(msg string) error
	SendErr(msg string) error
}

// UserSession 一个用户控制台连接。
//
// Sends are serialized. A failed send closes the session; sends on a closed
// session are ignored. Subscribers are notified once when the session closes.
type UserSession struct {
	id  ksuid.KSUID
	log logger.Logger

	mu        sync.Mutex
	client    Client
	transport io.Closer
	closed    bool

	subsMu      sync.Mutex
	subscribers []func(*UserSession)
	notified    bool
}

// New creates a session with a fresh id. transport may be nil.
func New(client Client, transport io.Closer) *UserSession {
	return NewWithID(ksuid.New(), client, transport)
}

// NewWithID creates a session with the given id. It panics on a nil client.
func NewWithID(id ksuid.KSUID, client Client, transport io.Closer) *UserSession {
	if client == nil {
		panic("session: nil client")
	}
	return &UserSession{id: id, client: client, transport: transport, log: logger.GetDefault()}
}

// SetLogger replaces the session logger.
func (s *UserSession) SetLogger(l logger.Logger) {
	s.log = l
}

func (s *UserSession) ID() ksuid.KSUID {
	return s.id
}

// Equal compares sessions by id.
func (s *UserSession) Equal(other *UserSession) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	return s.id == other.id
}

func (s *UserSession) String() string {
	return "session " + s.id.String()
}

// Subscribe registers fn to run when the session closes. fn runs
// immediately if subscribers were already notified.
func (s *UserSession) Subscribe(fn func(*UserSession)) {
	s.subsMu.Lock()
	if s.notified {
		s.subsMu.Unlock()
		fn(s)
		return
	}
	s.subscribers = append(s.subscribers, fn)
	s.subsMu.Unlock()
}

// Closed reports whether the session has been closed.
func (s *UserSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SendInfo sends regular output to the console.
func (s *UserSession) SendInfo(msg string) {
	s.send(msg, Client.SendInfo)
}

// SendErr sends error output to the console.
func (s *UserSession) SendErr(msg string) {
	s.send(msg, Client.SendErr)
}

func (s *UserSession) send(msg string, fn func(Client, string) error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	err := fn(s.client, msg)
	if err == nil {
		s.mu.Unlock()
		return
	}
	s.log.Error("could not send data to client of %s: %v", s, err)
	closeErr := s.closeLocked()
	s.mu.Unlock()
	if closeErr != nil {
		s.log.Error("closing %s: %v", s, closeErr)
	}
	s.notify()
}

// Close 关闭回调连接并通知订阅者，重复调用无效果。
func (s *UserSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	err := s.closeLocked()
	s.mu.Unlock()
	s.notify()
	return err
}

func (s *UserSession) closeLocked() error {
	s.log.Info("closing user session: %s", s.id)
	s.closed = true
	s.client = nil
	var err error
	if s.transport != nil {
		err = s.transport.Close()
		s.transport = nil
	}
	return err
}

func (s *UserSession) notify() {
	s.subsMu.Lock()
	subs := s.subscribers
	s.subscribers = nil
	s.notified = true
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

// Formatter renders a flow result for the console.
type Formatter func(flow.Result) string

// FormatResult renders "flow [start, end): k=v, ..." with keys sorted.
func FormatResult(r flow.Result) string {
	var sb strings.Builder
	sb.WriteString(r.Flow)
	if !r.WindowEnd.IsZero() {
		fmt.Fprintf(&sb, " [%s, %s)", r.WindowStart.Format(time.RFC3339), r.WindowEnd.Format(time.RFC3339))
	}
	sb.WriteString(": ")
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%s", k, table.Cell(r.Values[k]))
	}
	return sb.String()
}

// TableFormatter renders each result as a one-row grid under a header line.
// columns fixes the column order; unlisted columns follow sorted.
func TableFormatter(columns []string) Formatter {
	return func(r flow.Result) string {
		var sb strings.Builder
		sb.WriteString(r.Flow)
		if !r.WindowEnd.IsZero() {
			fmt.Fprintf(&sb, " [%s, %s)", r.WindowStart.Format(time.RFC3339), r.WindowEnd.Format(time.RFC3339))
		}
		sb.WriteByte('\n')
		sb.WriteString(table.String([]map[string]interface{}{r.Values}, columns))
		return sb.String()
	}
}

// Sink delivers flow output to the session console. A nil format uses FormatResult.
func (s *UserSession) Sink(format Formatter) flow.Sink {
	if format == nil {
		format = FormatResult
	}
	return &sessionSink{s: s, format: format}
}

type sessionSink struct {
	s      *UserSession
	format Formatter
}

func (k *sessionSink) OnResult(r flow.Result) {
	k.s.SendInfo(k.format(r))
}

func (k *sessionSink) OnError(err error) {
	k.s.SendErr(err.Error())
}
