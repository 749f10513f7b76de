package functions

import (
	"fmt"
	"strings"

	"github.com/rulego/flowsql/types"
)

// FunctionType 函数类型枚举
type FunctionType string

const (
	// 聚合函数
	TypeAggregation FunctionType = "aggregation"
	// 数学函数
	TypeMath FunctionType = "math"
	// 字符串函数
	TypeString FunctionType = "string"
	// 时间日期函数
	TypeDateTime FunctionType = "datetime"
	// 条件函数
	TypeConditional FunctionType = "conditional"
	// 用户自定义函数
	TypeCustom FunctionType = "custom"
)

// Definition 函数签名和实现，注册后不可修改
type Definition struct {
	Name    string
	Aliases []string
	Type    FunctionType
	// ArgTypes and ReturnType may contain universal types; positions sharing a
	// universal type are unified together at each call site.
	ArgTypes    []types.Type
	ReturnType  types.Type
	Impl        Function
	Description string
}

// Validate checks the definition before registration.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("function name is empty")
	}
	if d.Impl == nil {
		return fmt.Errorf("function %s has no implementation", d.Name)
	}
	if d.ReturnType.IsZero() {
		return fmt.Errorf("function %s has no return type", d.Name)
	}
	for i, t := range d.ArgTypes {
		if t.IsZero() {
			return fmt.Errorf("function %s argument %d has no type", d.Name, i)
		}
	}
	if IsAggregate(d.Impl) != (d.Type == TypeAggregation) {
		return fmt.Errorf("function %s: type %s does not match implementation %T", d.Name, d.Type, d.Impl)
	}
	return nil
}

// Signature renders the definition as name(args) -> ret.
func (d *Definition) Signature() string {
	var sb strings.Builder
	sb.WriteString(d.Name)
	sb.WriteByte('(')
	for i, t := range d.ArgTypes {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.String())
	}
	sb.WriteString(") -> ")
	sb.WriteString(d.ReturnType.String())
	return sb.String()
}

func scalarDef(name string, fnType FunctionType, args []types.Type, ret types.Type, description string, fn ScalarFunc) *Definition {
	return &Definition{
		Name:        name,
		Type:        fnType,
		ArgTypes:    args,
		ReturnType:  ret,
		Impl:        NewScalar(name, fn),
		Description: description,
	}
}

func aggregateDef[T any](name string, args []types.Type, ret types.Type, description string, impl AggregateFunc[T]) *Definition {
	return &Definition{
		Name:        name,
		Type:        TypeAggregation,
		ArgTypes:    args,
		ReturnType:  ret,
		Impl:        NewAggregate(name, impl),
		Description: description,
	}
}
