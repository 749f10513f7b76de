package expr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rulego/flowsql/dataset"
	"github.com/rulego/flowsql/symbol"
	"github.com/rulego/flowsql/types"
	"github.com/rulego/flowsql/utils/cast"
	"github.com/shopspring/decimal"
)

// Expr 表达式树节点。Type 在编译期调用一次，Eval 对每个事件调用。
type Expr interface {
	// Type resolves the node against tab and returns its concrete result type.
	Type(tab *symbol.Table) (types.Type, error)
	// ResolvedType returns the type memoized by Type, or the zero Type.
	ResolvedType() types.Type
	// Eval evaluates the node against one event.
	Eval(ev dataset.EventWrapper) (interface{}, error)
	// RequiredFields lists the input fields the node reads.
	RequiredFields(tab *symbol.Table) ([]types.TypedField, error)
	// IsConstant reports whether the node reads no fields.
	IsConstant() bool
	// Format writes an indented tree representation.
	Format(sb *strings.Builder, depth int)
	String() string
}

func pad(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
}

// Dump returns the tree representation of e.
func Dump(e Expr) string {
	var sb strings.Builder
	e.Format(&sb, 0)
	return sb.String()
}

// Const 字面量
type Const struct {
	value interface{}
	typ   types.Type
}

// NewConst creates a literal and infers its type from the Go value.
// Go int values are BIGINT.
func NewConst(v interface{}) *Const {
	switch x := v.(type) {
	case nil:
		return &Const{typ: types.Null}
	case bool:
		return &Const{value: x, typ: types.Bool}
	case int32:
		return &Const{value: x, typ: types.Int32}
	case int:
		return &Const{value: int64(x), typ: types.Int64}
	case int64:
		return &Const{value: x, typ: types.Int64}
	case float64:
		return &Const{value: x, typ: types.Float64}
	case decimal.Decimal:
		return &Const{value: x, typ: types.Decimal}
	case string:
		return &Const{value: x, typ: types.String}
	case time.Time:
		return &Const{value: x, typ: types.Timestamp}
	case map[string]interface{}:
		return &Const{value: x, typ: types.Record}
	}
	panic(fmt.Sprintf("expr: no literal type for %T", v))
}

// NewTypedConst creates a literal of an explicit type. The value is normalized
// to the representation of typ.
func NewTypedConst(v interface{}, typ types.Type) (*Const, error) {
	norm, err := cast.Coerce(v, typ, typ)
	if err != nil {
		return nil, err
	}
	return &Const{value: norm, typ: typ}, nil
}

func (c *Const) Type(*symbol.Table) (types.Type, error) {
	return c.typ, nil
}

func (c *Const) ResolvedType() types.Type {
	return c.typ
}

func (c *Const) Eval(dataset.EventWrapper) (interface{}, error) {
	return c.value, nil
}

func (c *Const) RequiredFields(*symbol.Table) ([]types.TypedField, error) {
	return nil, nil
}

func (c *Const) IsConstant() bool {
	return true
}

// Value returns the literal value.
func (c *Const) Value() interface{} {
	return c.value
}

func (c *Const) Format(sb *strings.Builder, depth int) {
	pad(sb, depth)
	fmt.Fprintf(sb, "Const value=%v type=%s\n", c.value, c.typ)
}

func (c *Const) String() string {
	switch v := c.value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case time.Time:
		return "TIMESTAMP '" + v.Format(time.RFC3339Nano) + "'"
	}
	return fmt.Sprint(c.value)
}

// Ident 字段引用，类型来自符号表中的字段符号
type Ident struct {
	name string
	typ  types.Type
}

func NewIdent(name string) *Ident {
	return &Ident{name: name}
}

func (i *Ident) Name() string { return i.name }

func (i *Ident) Type(tab *symbol.Table) (types.Type, error) {
	if !i.typ.IsZero() {
		return i.typ, nil
	}
	field, err := lookupField(tab, i.name)
	if err != nil {
		return types.Type{}, err
	}
	i.typ = field.Type()
	return i.typ, nil
}

func lookupField(tab *symbol.Table, name string) (*symbol.FieldSymbol, error) {
	sym, err := tab.Lookup(name)
	if err != nil {
		if errors.Is(err, symbol.ErrAliasCycle) || errors.Is(err, symbol.ErrAliasTooDeep) {
			tce := newTypeCheckError(AliasCycle, "", "cannot resolve field %s", name)
			tce.Err = err
			return nil, tce
		}
		tce := newTypeCheckError(UnknownField, "", "no such field: %s", name)
		tce.Err = err
		return nil, tce
	}
	field, ok := sym.(*symbol.FieldSymbol)
	if !ok {
		return nil, newTypeCheckError(UnknownField, "", "symbol %s is a %s, not a field", name, sym.Kind())
	}
	return field, nil
}

func (i *Ident) ResolvedType() types.Type { return i.typ }

// Eval reads the field and normalizes it to the field's type. A missing
// field is NULL.
func (i *Ident) Eval(ev dataset.EventWrapper) (interface{}, error) {
	if i.typ.IsZero() {
		panic(fmt.Sprintf("expr: field %s evaluated before resolution", i.name))
	}
	v, ok := ev.Field(i.name)
	if !ok || v == nil {
		return nil, nil
	}
	norm, err := cast.Coerce(v, i.typ, i.typ)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", i.name, err)
	}
	return norm, nil
}

func (i *Ident) RequiredFields(tab *symbol.Table) ([]types.TypedField, error) {
	typ, err := i.Type(tab)
	if err != nil {
		return nil, err
	}
	return []types.TypedField{{Name: i.name, Type: typ}}, nil
}

func (i *Ident) IsConstant() bool { return false }

func (i *Ident) Format(sb *strings.Builder, depth int) {
	pad(sb, depth)
	fmt.Fprintf(sb, "Ident name=%s\n", i.name)
}

func (i *Ident) String() string { return i.name }
