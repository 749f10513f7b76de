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

package types

// widening holds, for each source kind, the kinds it widens to besides itself.
// The table is already transitively closed.
var widening = map[Kind][]Kind{
	KindInt32:     {KindInt64, KindFloat64, KindDecimal, KindString},
	KindInt64:     {KindFloat64, KindDecimal, KindString},
	KindFloat64:   {KindDecimal, KindString},
	KindDecimal:   {KindString},
	KindBool:      {KindString},
	KindTimestamp: {KindInt64, KindFloat64, KindDecimal, KindString},
}

// PromotesTo reports whether a value of type t can be implicitly widened to
// target. It is reflexive on concrete types and always false when either side
// is universal.
func (t Type) PromotesTo(target Type) bool {
	if t.IsUniversal() || target.IsUniversal() {
		return false
	}
	if t.kind == target.kind {
		return true
	}
	if t.kind == KindNull {
		return true
	}
	for _, k := range widening[t.kind] {
		if k == target.kind {
			return true
		}
	}
	return false
}

// PromotesTo is the free-function form of Type.PromotesTo.
func PromotesTo(source, target Type) bool {
	return source.PromotesTo(target)
}

// Satisfies reports whether a concrete argument type may be bound to the
// type variable u: it must promote to at least one kind admitted by u's class.
// For a concrete u it is plain promotion.
func Satisfies(t, u Type) bool {
	if !u.IsUniversal() {
		return t.PromotesTo(u)
	}
	if t.IsUniversal() {
		return false
	}
	for _, k := range concreteKinds {
		if u.class.Admits(k) && t.PromotesTo(Type{kind: k}) {
			return true
		}
	}
	return false
}
