package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rulego/flowsql/dataset"
	"github.com/rulego/flowsql/functions"
	"github.com/rulego/flowsql/logger"
	"github.com/rulego/flowsql/symbol"
	"github.com/rulego/flowsql/types"
	"github.com/rulego/flowsql/utils/cast"
)

// FnCallExpr 函数调用表达式。
//
// Resolve binds the call to a function symbol exactly once: it type-checks the
// arguments, unifies universal types from this call's own argument types and
// fixes the concrete argument and return types. Eval, Accumulate and
// FinishWindow may then be called any number of times.
//
// A node owns a scratch buffer that every evaluation overwrites, so one node
// must not be evaluated from several goroutines at once. Use Clone to get an
// independent node per goroutine.
type FnCallExpr struct {
	name    string
	args    []Expr
	res     *resolution
	scratch []interface{}
}

// resolution is immutable once built and shared between clones.
type resolution struct {
	sym         *symbol.FnSymbol
	fn          functions.Function
	exprTypes   []types.Type
	argTypes    []types.Type
	retType     types.Type
	autoPromote bool
}

// NewFnCallExpr creates an unresolved call of the named function.
func NewFnCallExpr(name string, args ...Expr) *FnCallExpr {
	return &FnCallExpr{name: name, args: args}
}

// FunctionName returns the name used at the call site.
func (f *FnCallExpr) FunctionName() string {
	return f.name
}

// Args returns the argument expressions.
func (f *FnCallExpr) Args() []Expr {
	return f.args
}

// AddArg appends an argument. It panics once the call is resolved.
func (f *FnCallExpr) AddArg(e Expr) {
	if f.res != nil {
		panic(fmt.Sprintf("expr: cannot add argument to resolved call %s", f.name))
	}
	f.args = append(f.args, e)
}

// Resolve type-checks the call against tab. Calling it again after a
// successful resolution does nothing.
func (f *FnCallExpr) Resolve(tab *symbol.Table) error {
	if f.res != nil {
		return nil
	}

	sym, ok := tab.Resolve(f.name)
	if !ok {
		tce := newTypeCheckError(UnknownFunction, f.name, "no such function: %s", f.name)
		tce.Suggestions = suggest(f.name, tab.FunctionNames())
		return tce
	}
	sym, err := tab.ResolveAliases(sym)
	if err != nil {
		kind := UnknownFunction
		if errors.Is(err, symbol.ErrAliasCycle) || errors.Is(err, symbol.ErrAliasTooDeep) {
			kind = AliasCycle
		}
		tce := newTypeCheckError(kind, f.name, "cannot resolve function %s", f.name)
		tce.Err = err
		return tce
	}
	fnSym, ok := sym.(*symbol.FnSymbol)
	if !ok {
		return newTypeCheckError(NotAFunction, f.name, "symbol %s is a %s, not a function", f.name, sym.Kind())
	}

	abstractArgs := fnSym.ArgTypes()
	if len(f.args) != len(abstractArgs) {
		return newTypeCheckError(ArityMismatch, f.name, "function %s requires %d arguments, but received %d",
			f.name, len(abstractArgs), len(f.args))
	}

	exprTypes := make([]types.Type, len(f.args))
	for i, arg := range f.args {
		t, err := arg.Type(tab)
		if err != nil {
			return err
		}
		exprTypes[i] = t
		if !types.Satisfies(t, abstractArgs[i]) {
			tce := newTypeCheckError(ArgumentTypeMismatch, f.name, "invalid argument to function %s", f.name)
			tce.Position = i
			tce.Found = t
			tce.Required = abstractArgs[i]
			return tce
		}
	}

	// 按类型变量分组收集实参类型，保持首次出现的顺序
	var variables []types.Type
	constraints := make(map[types.Type][]types.Type)
	for i, abstract := range abstractArgs {
		if !abstract.IsUniversal() {
			continue
		}
		if _, ok := constraints[abstract]; !ok {
			variables = append(variables, abstract)
		}
		constraints[abstract] = append(constraints[abstract], exprTypes[i])
	}
	unified := make(map[types.Type]types.Type, len(variables))
	for _, v := range variables {
		t, err := types.Unify(v, constraints[v])
		if err != nil {
			tce := newTypeCheckError(UnresolvedUniversal, f.name, "cannot unify %s in call to %s", v, f.name)
			tce.Err = err
			return tce
		}
		unified[v] = t
	}

	argTypes := make([]types.Type, len(abstractArgs))
	for i, abstract := range abstractArgs {
		if !abstract.IsUniversal() {
			argTypes[i] = abstract
			continue
		}
		argTypes[i] = unified[abstract]
		logger.Debug("Resolved arg[%d] type of %s from %s to %s", i, f.name, abstract, argTypes[i])
	}

	retType := fnSym.ReturnType()
	if retType.IsUniversal() {
		concrete, ok := unified[retType]
		if !ok {
			// 返回类型只能由本次调用的实参推导，不能依赖调用方上下文
			tce := newTypeCheckError(UnresolvedReturnType, f.name,
				"output type of function %s is an unresolved universal type", f.name)
			tce.Required = retType
			return tce
		}
		logger.Debug("Resolved return type of %s from %s to %s", f.name, retType, concrete)
		retType = concrete
	}

	fn := fnSym.Function()
	f.res = &resolution{
		sym:         fnSym,
		fn:          fn,
		exprTypes:   exprTypes,
		argTypes:    argTypes,
		retType:     retType,
		autoPromote: fn.AutoPromote(),
	}
	f.scratch = make([]interface{}, len(f.args))
	return nil
}

// Type resolves the call and returns its concrete return type.
func (f *FnCallExpr) Type(tab *symbol.Table) (types.Type, error) {
	if err := f.Resolve(tab); err != nil {
		logger.Error("Type check failed for %s: %v", f.String(), err)
		return types.Type{}, err
	}
	return f.res.retType, nil
}

// ResolvedType returns the concrete return type, or the zero Type before resolution.
func (f *FnCallExpr) ResolvedType() types.Type {
	if f.res == nil {
		return types.Type{}
	}
	return f.res.retType
}

// Resolved reports whether Resolve has succeeded.
func (f *FnCallExpr) Resolved() bool {
	return f.res != nil
}

func (f *FnCallExpr) mustResolved() *resolution {
	if f.res == nil {
		panic(fmt.Sprintf("expr: function call %s used before resolution", f.name))
	}
	return f.res
}

// Symbol returns the bound function symbol.
func (f *FnCallExpr) Symbol() *symbol.FnSymbol {
	return f.mustResolved().sym
}

// ArgTypes returns the concretized argument types.
func (f *FnCallExpr) ArgTypes() []types.Type {
	return append([]types.Type(nil), f.mustResolved().argTypes...)
}

// ExprTypes returns the result types of the argument expressions.
func (f *FnCallExpr) ExprTypes() []types.Type {
	return append([]types.Type(nil), f.mustResolved().exprTypes...)
}

// IsAggregate reports whether the bound function is an aggregate.
func (f *FnCallExpr) IsAggregate() bool {
	return functions.IsAggregate(f.mustResolved().fn)
}

// IsScalar reports whether the bound function is a scalar function.
func (f *FnCallExpr) IsScalar() bool {
	return !f.IsAggregate()
}

// evaluateArguments fills the scratch buffer left to right. The first failing
// argument stops evaluation.
func (f *FnCallExpr) evaluateArguments(res *resolution, ev dataset.EventWrapper) error {
	for i, arg := range f.args {
		v, err := arg.Eval(ev)
		if err != nil {
			return err
		}
		if res.autoPromote {
			if v, err = cast.Coerce(v, res.exprTypes[i], res.argTypes[i]); err != nil {
				return &EvalError{Function: f.name, Err: fmt.Errorf("argument %d: %w", i, err)}
			}
		}
		f.scratch[i] = v
	}
	return nil
}

func (f *FnCallExpr) clearScratch() {
	for i := range f.scratch {
		f.scratch[i] = nil
	}
}

// Eval evaluates a scalar call against one event. It panics when the call
// is unresolved or bound to an aggregate.
func (f *FnCallExpr) Eval(ev dataset.EventWrapper) (interface{}, error) {
	res := f.mustResolved()
	scalar, ok := res.fn.(*functions.Scalar)
	if !ok {
		panic(fmt.Sprintf("expr: scalar evaluation of aggregate function %s", f.name))
	}
	defer f.clearScratch()
	if err := f.evaluateArguments(res, ev); err != nil {
		return nil, err
	}
	out, err := scalar.Eval(f.scratch)
	if err != nil {
		return nil, &EvalError{Function: f.name, Err: err}
	}
	return out, nil
}

// Accumulate evaluates the arguments against ev and folds the first one into
// bucket. It panics when the call is unresolved or bound to a scalar.
func (f *FnCallExpr) Accumulate(ev dataset.EventWrapper, bucket *functions.Bucket) error {
	res := f.mustResolved()
	agg := f.mustAggregate(res)
	defer f.clearScratch()
	if err := f.evaluateArguments(res, ev); err != nil {
		return err
	}
	var v interface{}
	if len(f.scratch) > 0 {
		v = f.scratch[0]
	}
	if err := agg.Accumulate(v, bucket, res.retType); err != nil {
		return &EvalError{Function: f.name, Err: err}
	}
	return nil
}

// FinishWindow reduces the window's buckets, ordered by time, into one value.
func (f *FnCallExpr) FinishWindow(buckets []*functions.Bucket) (interface{}, error) {
	res := f.mustResolved()
	agg := f.mustAggregate(res)
	out, err := agg.FinishWindow(buckets, res.retType)
	if err != nil {
		return nil, &EvalError{Function: f.name, Err: err}
	}
	return out, nil
}

// NewBucket creates an empty bucket for this aggregate call.
func (f *FnCallExpr) NewBucket() *functions.Bucket {
	return f.mustAggregate(f.mustResolved()).NewBucket()
}

func (f *FnCallExpr) mustAggregate(res *resolution) *functions.Aggregate {
	agg, ok := res.fn.(*functions.Aggregate)
	if !ok {
		panic(fmt.Sprintf("expr: aggregate evaluation of scalar function %s", f.name))
	}
	return agg
}

// RequiredFields returns the union of the fields the arguments read.
func (f *FnCallExpr) RequiredFields(tab *symbol.Table) ([]types.TypedField, error) {
	lists := make([][]types.TypedField, 0, len(f.args))
	for _, arg := range f.args {
		fields, err := arg.RequiredFields(tab)
		if err != nil {
			return nil, err
		}
		lists = append(lists, fields)
	}
	return types.MergeFields(lists...), nil
}

// IsConstant reports whether no argument reads a field.
func (f *FnCallExpr) IsConstant() bool {
	for _, arg := range f.args {
		if !arg.IsConstant() {
			return false
		}
	}
	return true
}

// Clone returns a node sharing this node's resolution with its own scratch
// buffer. Nested calls are cloned as well.
func (f *FnCallExpr) Clone() *FnCallExpr {
	c := &FnCallExpr{name: f.name, res: f.res, args: make([]Expr, len(f.args))}
	for i, arg := range f.args {
		c.args[i] = Clone(arg)
	}
	if f.res != nil {
		c.scratch = make([]interface{}, len(f.args))
	}
	return c
}

func (f *FnCallExpr) Format(sb *strings.Builder, depth int) {
	pad(sb, depth)
	fmt.Fprintf(sb, "FnCall name=%s\n", f.name)
	pad(sb, depth+1)
	sb.WriteString("arguments:\n")
	for _, arg := range f.args {
		arg.Format(sb, depth+2)
	}
}

func (f *FnCallExpr) String() string {
	var sb strings.Builder
	sb.WriteString(f.name)
	sb.WriteByte('(')
	for i, arg := range f.args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Clone copies the parts of an expression tree that hold per-evaluation
// state. Leaves are immutable after resolution and are shared.
func Clone(e Expr) Expr {
	if call, ok := e.(*FnCallExpr); ok {
		return call.Clone()
	}
	return e
}
