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

// Package dataset defines the read-only event handle that leaf expressions read from.
package dataset

import (
	"time"

	"github.com/rulego/flowsql/utils/cast"
	"github.com/rulego/flowsql/utils/fieldpath"
)

// EventWrapper 流式事件的只读句柄，由调用方持有，在一次求值期间借用。
type EventWrapper interface {
	// Field returns the value stored under a field name or nested path.
	Field(name string) (interface{}, bool)
	// Timestamp is the event time used for window assignment.
	Timestamp() time.Time
}

// MapEvent wraps a map payload such as a decoded JSON record.
type MapEvent struct {
	data map[string]interface{}
	ts   time.Time
}

// NewMapEvent creates an event with an explicit event time.
func NewMapEvent(data map[string]interface{}, ts time.Time) *MapEvent {
	return &MapEvent{data: data, ts: ts}
}

// NewMapEventWithTsProp takes the event time from the tsProp field. The field
// may hold a time.Time, unix milliseconds or a date string; otherwise now is used.
func NewMapEventWithTsProp(data map[string]interface{}, tsProp string) *MapEvent {
	ts := time.Now()
	if v, ok := fieldpath.GetNestedField(data, tsProp); ok {
		if t, err := cast.ToTime(v); err == nil {
			ts = t
		}
	}
	return &MapEvent{data: data, ts: ts}
}

func (e *MapEvent) Field(name string) (interface{}, bool) {
	if v, ok := e.data[name]; ok {
		return v, true
	}
	if !fieldpath.IsNestedField(name) {
		return nil, false
	}
	// 顶层字段不存在时不必解析路径
	if _, ok := e.data[fieldpath.ExtractTopLevelField(name)]; !ok {
		return nil, false
	}
	return fieldpath.GetNestedField(e.data, name)
}

func (e *MapEvent) Timestamp() time.Time {
	return e.ts
}

// Data returns the underlying payload.
func (e *MapEvent) Data() map[string]interface{} {
	return e.data
}
