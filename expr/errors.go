package expr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rulego/flowsql/types"
)

// ErrorKind 类型检查错误类型
type ErrorKind int

const (
	UnknownFunction ErrorKind = iota
	NotAFunction
	ArityMismatch
	ArgumentTypeMismatch
	UnresolvedUniversal
	UnresolvedReturnType
	UnknownField
	AliasCycle
)

var (
	ErrUnknownFunction      = errors.New("unknown function")
	ErrNotAFunction         = errors.New("not a function")
	ErrArityMismatch        = errors.New("arity mismatch")
	ErrArgumentTypeMismatch = errors.New("argument type mismatch")
	ErrUnresolvedUniversal  = errors.New("unresolved universal type")
	ErrUnresolvedReturnType = errors.New("unresolved return type")
	ErrUnknownField         = errors.New("unknown field")
	ErrAliasCycle           = errors.New("alias cycle")
)

// String 获取错误类型名称
func (k ErrorKind) String() string {
	switch k {
	case UnknownFunction:
		return "UNKNOWN_FUNCTION"
	case NotAFunction:
		return "NOT_A_FUNCTION"
	case ArityMismatch:
		return "ARITY_MISMATCH"
	case ArgumentTypeMismatch:
		return "ARGUMENT_TYPE_MISMATCH"
	case UnresolvedUniversal:
		return "UNRESOLVED_UNIVERSAL"
	case UnresolvedReturnType:
		return "UNRESOLVED_RETURN_TYPE"
	case UnknownField:
		return "UNKNOWN_FIELD"
	case AliasCycle:
		return "ALIAS_CYCLE"
	default:
		return "UNKNOWN_ERROR"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case UnknownFunction:
		return ErrUnknownFunction
	case NotAFunction:
		return ErrNotAFunction
	case ArityMismatch:
		return ErrArityMismatch
	case ArgumentTypeMismatch:
		return ErrArgumentTypeMismatch
	case UnresolvedUniversal:
		return ErrUnresolvedUniversal
	case UnresolvedReturnType:
		return ErrUnresolvedReturnType
	case UnknownField:
		return ErrUnknownField
	case AliasCycle:
		return ErrAliasCycle
	}
	return nil
}

// TypeCheckError 解析阶段的类型检查错误，查询在执行前被拒绝
type TypeCheckError struct {
	Kind     ErrorKind
	Function string
	// Position is the zero-based argument index, or -1.
	Position    int
	Found       types.Type
	Required    types.Type
	Message     string
	Suggestions []string
	Err         error
}

// Error 实现 error 接口
func (e *TypeCheckError) Error() string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("[%s] %s", e.Kind, e.Message))
	if e.Position >= 0 {
		builder.WriteString(fmt.Sprintf(" at argument %d", e.Position))
	}
	if !e.Found.IsZero() || !e.Required.IsZero() {
		builder.WriteString(fmt.Sprintf(" (found %s, required %s)", e.Found, e.Required))
	}
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	if len(e.Suggestions) > 0 {
		builder.WriteString(fmt.Sprintf("\nSuggestions: %s", strings.Join(e.Suggestions, "; ")))
	}
	return builder.String()
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is and errors.As.
func (e *TypeCheckError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newTypeCheckError(kind ErrorKind, fn, format string, args ...interface{}) *TypeCheckError {
	return &TypeCheckError{
		Kind:     kind,
		Function: fn,
		Position: -1,
		Message:  fmt.Sprintf(format, args...),
	}
}

// EvalError 运行阶段函数体返回的错误
type EvalError struct {
	Function string
	Err      error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluating %s: %v", e.Function, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// suggest returns up to three candidates close to name by edit distance.
func suggest(name string, candidates []string) []string {
	name = strings.ToLower(name)
	limit := len(name)/3 + 1
	type scored struct {
		name string
		dist int
	}
	var near []scored
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(name, strings.ToLower(c))
		if d <= limit {
			near = append(near, scored{c, d})
		}
	}
	sort.SliceStable(near, func(i, j int) bool {
		if near[i].dist != near[j].dist {
			return near[i].dist < near[j].dist
		}
		return near[i].name < near[j].name
	})
	var out []string
	for i := 0; i < len(near) && i < 3; i++ {
		out = append(out, fmt.Sprintf("did you mean %s?", near[i].name))
	}
	return out
}
