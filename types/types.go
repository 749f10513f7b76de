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
	"fmt"
	"strings"
)

// Kind 具体类型种类
type Kind int

const (
	// KindUniversal marks a type variable; it is never the kind of a value.
	KindUniversal Kind = iota
	KindNull
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindDecimal
	KindString
	KindTimestamp
	KindRecord
)

// concreteKinds lists every value kind in widening order.
var concreteKinds = []Kind{
	KindNull,
	KindBool,
	KindInt32,
	KindInt64,
	KindFloat64,
	KindDecimal,
	KindString,
	KindTimestamp,
	KindRecord,
}

// String returns the SQL spelling of the kind
func (k Kind) String() string {
	switch k {
	case KindUniversal:
		return "UNIVERSAL"
	case KindNull:
		return "NULL"
	case KindBool:
		return "BOOLEAN"
	case KindInt32:
		return "INT"
	case KindInt64:
		return "BIGINT"
	case KindFloat64:
		return "DOUBLE"
	case KindDecimal:
		return "DECIMAL"
	case KindString:
		return "STRING"
	case KindTimestamp:
		return "TIMESTAMP"
	case KindRecord:
		return "RECORD"
	default:
		return "UNKNOWN"
	}
}

// IsNumeric reports whether values of the kind take part in arithmetic.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt32, KindInt64, KindFloat64, KindDecimal:
		return true
	}
	return false
}

// IsIntegral reports whether the kind is an integer kind.
func (k Kind) IsIntegral() bool {
	return k == KindInt32 || k == KindInt64
}

// Class 约束类型变量可以绑定的具体类型范围
type Class int

const (
	ClassAny Class = iota
	ClassNumeric
	ClassIntegral
	// ClassOrdered admits kinds with a total order: numbers, strings and timestamps.
	ClassOrdered
)

func (c Class) String() string {
	switch c {
	case ClassAny:
		return "any"
	case ClassNumeric:
		return "numeric"
	case ClassIntegral:
		return "integral"
	case ClassOrdered:
		return "ordered"
	default:
		return "unknown"
	}
}

// Admits reports whether a concrete kind belongs to the class.
func (c Class) Admits(k Kind) bool {
	switch c {
	case ClassAny:
		return k != KindUniversal
	case ClassNumeric:
		return k.IsNumeric()
	case ClassIntegral:
		return k.IsIntegral()
	case ClassOrdered:
		return k.IsNumeric() || k == KindString || k == KindTimestamp
	}
	return false
}

// Type 类型：具体类型或者待统一的类型变量（universal type）。
// Type is comparable and can key a map; two universal types are the same
// variable iff they share name and class.
type Type struct {
	kind  Kind
	name  string
	class Class
}

var (
	Null      = Type{kind: KindNull}
	Bool      = Type{kind: KindBool}
	Int32     = Type{kind: KindInt32}
	Int64     = Type{kind: KindInt64}
	Float64   = Type{kind: KindFloat64}
	Decimal   = Type{kind: KindDecimal}
	String    = Type{kind: KindString}
	Timestamp = Type{kind: KindTimestamp}
	Record    = Type{kind: KindRecord}
)

// Concrete returns the concrete type of the given kind.
func Concrete(k Kind) Type {
	if k == KindUniversal {
		panic("types: universal is not a concrete kind")
	}
	return Type{kind: k}
}

// Universal returns the type variable called name, restricted to class.
func Universal(name string, class Class) Type {
	return Type{kind: KindUniversal, name: name, class: class}
}

// Kind returns the kind of the type; KindUniversal for type variables.
func (t Type) Kind() Kind {
	return t.kind
}

// IsUniversal reports whether t is an unresolved type variable.
func (t Type) IsUniversal() bool {
	return t.kind == KindUniversal
}

// IsZero reports whether t is the zero Type, i.e. not yet resolved.
func (t Type) IsZero() bool {
	return t == Type{}
}

// Name returns the variable name of a universal type.
func (t Type) Name() string {
	return t.name
}

// Class returns the class bound of a universal type.
func (t Type) Class() Class {
	return t.class
}

func (t Type) String() string {
	if t.IsUniversal() {
		if t.class == ClassAny {
			return "'" + t.name
		}
		return fmt.Sprintf("'%s<%s>", t.name, t.class)
	}
	return t.kind.String()
}

// ParseType parses an SQL type name such as "bigint" or "string".
func ParseType(name string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "NULL":
		return Null, nil
	case "BOOLEAN", "BOOL":
		return Bool, nil
	case "INT", "INTEGER", "INT32":
		return Int32, nil
	case "BIGINT", "LONG", "INT64":
		return Int64, nil
	case "DOUBLE", "FLOAT", "FLOAT64":
		return Float64, nil
	case "DECIMAL", "NUMERIC":
		return Decimal, nil
	case "STRING", "VARCHAR", "TEXT":
		return String, nil
	case "TIMESTAMP":
		return Timestamp, nil
	case "RECORD":
		return Record, nil
	}
	return Type{}, fmt.Errorf("unknown type name %q", name)
}

// TypedField 查询需要从输入记录中读取的字段
type TypedField struct {
	Name string
	Type Type
}

func (f TypedField) String() string {
	return f.Name + " " + f.Type.String()
}

// MergeFields returns the union of field lists, keeping first-seen order.
func MergeFields(lists ...[]TypedField) []TypedField {
	seen := make(map[string]struct{})
	var out []TypedField
	for _, list := range lists {
		for _, f := range list {
			key := strings.ToLower(f.Name)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}
