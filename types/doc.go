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
Package types provides the FlowSQL type model.

A Type is either concrete (BOOLEAN, INT, BIGINT, DOUBLE, DECIMAL, STRING,
TIMESTAMP, RECORD, or the type of the NULL literal) or universal: a type
variable that appears in a function signature and is bound per call site.

# Promotion

Promotion is the implicit widening partial order used when an argument value
is handed to a function:

	INT       -> BIGINT, DOUBLE, DECIMAL, STRING
	BIGINT    -> DOUBLE, DECIMAL, STRING
	DOUBLE    -> DECIMAL, STRING
	DECIMAL   -> STRING
	BOOLEAN   -> STRING
	TIMESTAMP -> BIGINT, DOUBLE, DECIMAL, STRING
	NULL      -> every concrete type

Every type promotes to itself. Nothing promotes to a universal type.

# Unification

A universal type carries a Class (any, numeric, integral, ordered). Unify picks
the least concrete type of that class which every observed argument type
promotes to:

	t := types.Universal("T", types.ClassAny)
	u, err := types.Unify(t, []types.Type{types.Int32, types.Int64})
	// u == types.Int64

Unification is local to one call; a binding never outlives the resolution
pass that produced it.
*/
package types
