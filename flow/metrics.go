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

package flow

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes metric names when none is configured.
const DefaultNamespace = "flowsql"

// Metrics 每个流的计数器，通过flow常量标签区分
type Metrics struct {
	Events         prometheus.Counter
	Filtered       prometheus.Counter
	EvalErrors     prometheus.Counter
	WindowsEmitted prometheus.Counter
	LateEvents     prometheus.Counter
}

// NewMetrics creates the counters of one flow and registers them on reg.
// A nil reg leaves them unregistered. Registering a flow name twice reuses
// the counters already registered.
func NewMetrics(reg prometheus.Registerer, namespace, flowName string) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	counter := func(name, help string) (prometheus.Counter, error) {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "flow",
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"flow": flowName},
		})
		if reg == nil {
			return c, nil
		}
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
					return existing, nil
				}
			}
			return nil, err
		}
		return c, nil
	}
	m := &Metrics{}
	var err error
	if m.Events, err = counter("events_total", "Events received by the flow."); err != nil {
		return nil, err
	}
	if m.Filtered, err = counter("events_filtered_total", "Events rejected by the flow filter."); err != nil {
		return nil, err
	}
	if m.EvalErrors, err = counter("eval_errors_total", "Events or windows dropped because evaluation failed."); err != nil {
		return nil, err
	}
	if m.WindowsEmitted, err = counter("windows_emitted_total", "Window results delivered to sinks."); err != nil {
		return nil, err
	}
	if m.LateEvents, err = counter("late_events_total", "Events dropped because all their windows had fired."); err != nil {
		return nil, err
	}
	return m, nil
}
