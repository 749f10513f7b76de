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

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnresolved is returned by Unify when no single concrete type fits.
var ErrUnresolved = errors.New("unresolved universal type")

// Unify 为类型变量选择一个具体类型：所有约束类型都能提升到它，且它是满足条件的最小类型。
//
// The candidate set is every concrete kind admitted by the variable's class
// that all constraints promote to; the result is the candidate that promotes
// to every other candidate. An empty constraint set, an empty candidate set or
// a set without a least element all yield ErrUnresolved.
func Unify(variable Type, constraints []Type) (Type, error) {
	if !variable.IsUniversal() {
		return Type{}, fmt.Errorf("%w: %s is not a type variable", ErrUnresolved, variable)
	}
	if len(constraints) == 0 {
		return Type{}, fmt.Errorf("%w: %s has no constraints", ErrUnresolved, variable)
	}
	for _, c := range constraints {
		if c.IsUniversal() {
			return Type{}, fmt.Errorf("%w: constraint %s of %s is itself universal", ErrUnresolved, c, variable)
		}
	}

	var bounds []Type
	for _, k := range concreteKinds {
		if !variable.class.Admits(k) {
			continue
		}
		candidate := Type{kind: k}
		if promoteAll(constraints, candidate) {
			bounds = append(bounds, candidate)
		}
	}
	if len(bounds) == 0 {
		return Type{}, fmt.Errorf("%w: no %s type accepts all of [%s]", ErrUnresolved, variable.class, joinTypes(constraints))
	}

	for _, b := range bounds {
		least := true
		for _, other := range bounds {
			if !b.PromotesTo(other) {
				least = false
				break
			}
		}
		if least {
			return b, nil
		}
	}
	return Type{}, fmt.Errorf("%w: [%s] have no least common type for %s", ErrUnresolved, joinTypes(constraints), variable)
}

// promoteAll reports whether every type in ts promotes to target.
func promoteAll(ts []Type, target Type) bool {
	for _, t := range ts {
		if !t.PromotesTo(target) {
			return false
		}
	}
	return true
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
