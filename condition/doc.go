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
Package condition evaluates WHERE predicates of a flow.

Predicates are expr-lang boolean expressions compiled once and run against
the fields of each event. Compile keeps recently used programs in an ARC
cache keyed by the trimmed expression text, so flows that share a filter
share one program.

# Custom Functions

	like_match(text, pattern) - SQL LIKE with % and _ wildcards
	is_null(value)            - value is NULL or the field is missing
	is_not_null(value)        - value is present and not NULL

# Usage

	cond, err := condition.Compile("temperature > 30 && like_match(deviceId, 'sensor-%')")
	if err != nil {
		return err
	}
	ok, err := cond.Match(ev)

Match only copies the fields the expression reads (see Fields) into the
program environment; a missing field is nil. Evaluate runs against a
caller-prepared environment and reports runtime errors as false.
*/
package condition
