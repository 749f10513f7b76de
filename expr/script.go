package expr

import (
	"fmt"
	"strings"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rulego/flowsql/condition"
	"github.com/rulego/flowsql/dataset"
	"github.com/rulego/flowsql/symbol"
	"github.com/rulego/flowsql/types"
	"github.com/rulego/flowsql/utils/cast"
)

// Script 使用expr-lang编写的叶子表达式，如 "temperature * 1.8 + 32"。
// 结果类型由调用方声明，运行结果会被转换为该类型。
type Script struct {
	source  string
	typ     types.Type
	program *vm.Program
	idents  []string
}

// NewScript compiles source. typ must be concrete.
func NewScript(source string, typ types.Type) (*Script, error) {
	if typ.IsUniversal() {
		return nil, fmt.Errorf("script %q: result type must be concrete, got %s", source, typ)
	}
	idents, err := condition.Identifiers(source)
	if err != nil {
		return nil, fmt.Errorf("script %q: %w", source, err)
	}
	program, err := exprlang.Compile(source, exprlang.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("script %q: %w", source, err)
	}
	return &Script{source: source, typ: typ, program: program, idents: idents}, nil
}

// Identifiers returns the variable names the script reads.
func (s *Script) Identifiers() []string {
	return s.idents
}

func (s *Script) Type(*symbol.Table) (types.Type, error) {
	return s.typ, nil
}

func (s *Script) ResolvedType() types.Type {
	return s.typ
}

func (s *Script) Eval(ev dataset.EventWrapper) (interface{}, error) {
	env := make(map[string]interface{}, len(s.idents))
	for _, name := range s.idents {
		if v, ok := ev.Field(name); ok {
			env[name] = v
		}
	}
	out, err := exprlang.Run(s.program, env)
	if err != nil {
		return nil, fmt.Errorf("script %q: %w", s.source, err)
	}
	if out == nil {
		return nil, nil
	}
	v, err := cast.Coerce(out, s.typ, s.typ)
	if err != nil {
		return nil, fmt.Errorf("script %q: result %v is not %s: %w", s.source, out, s.typ, err)
	}
	return v, nil
}

// RequiredFields reports the identifiers that name fields of tab. Other
// identifiers are treated as script-local.
func (s *Script) RequiredFields(tab *symbol.Table) ([]types.TypedField, error) {
	var out []types.TypedField
	for _, name := range s.idents {
		sym, ok := tab.Resolve(name)
		if !ok {
			continue
		}
		if field, ok := sym.(*symbol.FieldSymbol); ok {
			out = append(out, types.TypedField{Name: field.Name(), Type: field.Type()})
		}
	}
	return out, nil
}

func (s *Script) IsConstant() bool {
	return len(s.idents) == 0
}

func (s *Script) Format(sb *strings.Builder, depth int) {
	pad(sb, depth)
	fmt.Fprintf(sb, "Script source=%q type=%s\n", s.source, s.typ)
}

func (s *Script) String() string {
	return "{" + s.source + "}"
}
