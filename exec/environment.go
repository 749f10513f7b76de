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

// Package exec deploys flows and governs their lifecycle.
package exec

import (
	"errors"

	"github.com/rulego/flowsql/flow"
	"github.com/rulego/flowsql/symbol"
	"github.com/segmentio/ksuid"
)

var (
	ErrUnknownFlow  = errors.New("unknown flow")
	ErrNoPlanner    = errors.New("environment has no query planner")
	ErrDisconnected = errors.New("environment is disconnected")
)

// FlowID identifies a deployed flow.
type FlowID ksuid.KSUID

// NewFlowID returns a fresh, time-ordered id.
func NewFlowID() FlowID {
	return FlowID(ksuid.New())
}

// ParseFlowID parses the string form of a FlowID.
func ParseFlowID(s string) (FlowID, error) {
	id, err := ksuid.Parse(s)
	if err != nil {
		return FlowID{}, err
	}
	return FlowID(id), nil
}

func (id FlowID) String() string {
	return ksuid.KSUID(id).String()
}

func (id FlowID) IsNil() bool {
	return ksuid.KSUID(id).IsNil()
}

// QuerySubmitResponse carries text for the user and the flow a statement spawned, if any.
type QuerySubmitResponse struct {
	Message string
	FlowID  *FlowID
}

// Plan is the outcome of planning one statement.
type Plan struct {
	// Message is shown to the user.
	Message string
	// Flow is nil for statements that deploy nothing.
	Flow *flow.Spec
}

// Planner turns query text into a Plan. Parsing query text happens outside
// this module; a planner receives the environment's symbol table so it can
// build resolved projections.
type Planner interface {
	Plan(query string, tab *symbol.Table) (Plan, error)
}

// PlannerFunc adapts a function to a Planner.
type PlannerFunc func(query string, tab *symbol.Table) (Plan, error)

func (f PlannerFunc) Plan(query string, tab *symbol.Table) (Plan, error) {
	return f(query, tab)
}

// Environment 执行环境：提交查询、部署和取消流。
type Environment interface {
	// EnvName names the environment, e.g. "local".
	EnvName() string
	// SubmitQuery plans query and deploys the flow it describes, if any.
	SubmitQuery(query string) (*QuerySubmitResponse, error)
	// AddFlow deploys an already planned flow.
	AddFlow(spec flow.Spec) (FlowID, error)
	// CancelFlow stops a running flow and waits for it to exit.
	CancelFlow(id FlowID) error
	// Disconnect stops every flow and releases the environment.
	Disconnect() error
}
