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
Package functions provides the function registry and the executable function
contract used by FlowSQL call expressions.

# Function Variants

A Function is exactly one of two variants:

	*Scalar    - stateless, maps one argument vector to one value per event
	*Aggregate - stateful per window: values are accumulated into a Bucket,
	             and the ordered buckets of a window are reduced by FinishWindow

Callers branch on the variant with Match, which panics on anything else:

	isAgg := functions.Match(fn,
		func(*functions.Scalar) bool { return false },
		func(*functions.Aggregate) bool { return true })

# Aggregates

Aggregates are written as a typed AggregateFunc[T], where T is the state held
by one bucket, and erased with NewAggregate:

	type countAgg struct{}

	func (countAgg) Init() int64 { return 0 }
	func (countAgg) Add(n int64, _ interface{}, _ types.Type) (int64, error) { return n + 1, nil }
	func (countAgg) Finish(states []int64, _ types.Type) (interface{}, error) { ... }

NULL values never reach Add. A bucket belongs to the aggregate that created it
and becomes read-only once sealed by the window that owns it.

# Signatures

Each registered Definition carries argument and return types that may contain
universal types (type variables). Positions sharing a variable are unified per
call site, so greatest(INT, BIGINT) is evaluated as greatest(BIGINT, BIGINT).

	greatest('T<ordered>, 'T<ordered>) -> 'T<ordered>
	sum('N<numeric>) -> 'N<numeric>
	count('T) -> BIGINT

# Built-in Functions

	ABS, ROUND                               - math
	GREATEST, LEAST, COALESCE                - conditional
	UPPER, LOWER, LENGTH, CONCAT,
	LEVENSHTEIN, KSUID                       - string
	TO_TIMESTAMP, STRFTIME                   - date and time
	COUNT, SUM, AVG, MIN, MAX, FIRST, LAST,
	STDDEV, STDDEV_S, VAR, VAR_S, MEDIAN,
	COUNT_DISTINCT, APPROX_COUNT_DISTINCT    - aggregation

# Custom Functions

	functions.RegisterCustomFunction("double_it",
		[]types.Type{types.Float64}, types.Float64, "Double a value",
		func(args []interface{}) (interface{}, error) {
			return args[0].(float64) * 2, nil
		})
*/
package functions
