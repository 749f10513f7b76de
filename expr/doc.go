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
Package expr provides the typed expression tree evaluated by FlowSQL flows.

# Nodes

	Const      - literal value with an inferred or declared type
	Ident      - field reference typed through a symbol.FieldSymbol
	Script     - expr-lang program with a declared result type
	FnCallExpr - call of a registered scalar or aggregate function

# Resolution

Every tree is resolved once against a symbol.Table by calling Type on its
root. For a FnCallExpr this looks the function up (following aliases), checks
arity, checks every argument type against the signature and unifies the
universal types of the signature from the argument types of this call only:

	tab := symbol.NewBuiltinTable().Child()
	_ = tab.AddField("small", types.Int32)
	_ = tab.AddField("big", types.Int64)

	call := expr.NewFnCallExpr("greatest", expr.NewIdent("small"), expr.NewIdent("big"))
	ret, err := call.Type(tab) // ret == types.Int64, both arguments widened to BIGINT

Failures are reported as *TypeCheckError and match the kind sentinels with
errors.Is:

	if errors.Is(err, expr.ErrArityMismatch) { ... }

# Evaluation

Scalar calls are evaluated per event with Eval. Aggregate calls fold events
into buckets with Accumulate and produce one value per window with
FinishWindow. Calling the wrong entry point for the bound function, or any
entry point before resolution, panics. Failures raised by function bodies are
returned as *EvalError.

A FnCallExpr reuses an argument buffer between evaluations and is therefore
not safe for concurrent use; Clone gives each goroutine its own node.
*/
package expr
