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

// Package symbol resolves names used in expressions to typed symbols.
package symbol

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rulego/flowsql/functions"
	"github.com/rulego/flowsql/types"
)

// DefaultMaxAliasDepth bounds alias chains.
const DefaultMaxAliasDepth = 16

var (
	ErrAliasCycle    = errors.New("alias cycle")
	ErrAliasTooDeep  = errors.New("alias chain too deep")
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrDuplicate     = errors.New("symbol already defined")
)

// Kind 符号种类
type Kind int

const (
	KindFunction Kind = iota
	KindField
	KindAlias
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindField:
		return "field"
	case KindAlias:
		return "alias"
	}
	return "unknown"
}

// Symbol is a named entry of a Table.
type Symbol interface {
	Name() string
	Kind() Kind
}

// FnSymbol 函数符号：抽象签名加上共享的函数实例
type FnSymbol struct {
	def *functions.Definition
}

// NewFnSymbol wraps a registered definition.
func NewFnSymbol(def *functions.Definition) *FnSymbol {
	return &FnSymbol{def: def}
}

func (s *FnSymbol) Name() string { return s.def.Name }
func (s *FnSymbol) Kind() Kind   { return KindFunction }

// ArgTypes returns the abstract argument types. The slice must not be modified.
func (s *FnSymbol) ArgTypes() []types.Type { return s.def.ArgTypes }

// ReturnType returns the abstract return type.
func (s *FnSymbol) ReturnType() types.Type { return s.def.ReturnType }

// Function returns the executable instance shared by every call site.
func (s *FnSymbol) Function() functions.Function { return s.def.Impl }

// Definition returns the registered definition.
func (s *FnSymbol) Definition() *functions.Definition { return s.def }

// FieldSymbol 输入记录中的字段
type FieldSymbol struct {
	name string
	typ  types.Type
}

func NewFieldSymbol(name string, typ types.Type) *FieldSymbol {
	return &FieldSymbol{name: name, typ: typ}
}

func (s *FieldSymbol) Name() string     { return s.name }
func (s *FieldSymbol) Kind() Kind       { return KindField }
func (s *FieldSymbol) Type() types.Type { return s.typ }

// AliasSymbol 指向另一个名称的别名
type AliasSymbol struct {
	name   string
	target string
}

func NewAliasSymbol(name, target string) *AliasSymbol {
	return &AliasSymbol{name: name, target: target}
}

func (s *AliasSymbol) Name() string   { return s.name }
func (s *AliasSymbol) Kind() Kind     { return KindAlias }
func (s *AliasSymbol) Target() string { return s.target }

// Table 分层符号表，子作用域的符号覆盖父作用域，名称不区分大小写
type Table struct {
	mu            sync.RWMutex
	parent        *Table
	symbols       map[string]Symbol
	maxAliasDepth int
}

// Option configures a Table.
type Option func(*Table)

// WithMaxAliasDepth overrides DefaultMaxAliasDepth.
func WithMaxAliasDepth(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.maxAliasDepth = n
		}
	}
}

// NewTable creates a table whose lookups fall back to parent, which may be nil.
func NewTable(parent *Table, opts ...Option) *Table {
	t := &Table{
		parent:        parent,
		symbols:       make(map[string]Symbol),
		maxAliasDepth: DefaultMaxAliasDepth,
	}
	if parent != nil {
		t.maxAliasDepth = parent.maxAliasDepth
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewBuiltinTable creates a root table holding every function of the global registry.
func NewBuiltinTable(opts ...Option) *Table {
	return NewTableFromRegistry(functions.Global(), opts...)
}

// NewTableFromRegistry creates a root table from a function registry. Registry
// aliases become alias symbols.
func NewTableFromRegistry(r *functions.FunctionRegistry, opts ...Option) *Table {
	t := NewTable(nil, opts...)
	for _, def := range r.ListAll() {
		t.symbols[key(def.Name)] = NewFnSymbol(def)
		for _, alias := range def.Aliases {
			t.symbols[key(alias)] = NewAliasSymbol(alias, def.Name)
		}
	}
	return t
}

func key(name string) string {
	return strings.ToLower(name)
}

// Child creates a nested scope.
func (t *Table) Child() *Table {
	return NewTable(t)
}

// Parent returns the enclosing scope or nil.
func (t *Table) Parent() *Table {
	return t.parent
}

// Add defines sym in this scope. Shadowing a parent symbol is allowed.
func (t *Table) Add(sym Symbol) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(sym.Name())
	if _, ok := t.symbols[k]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, sym.Name())
	}
	t.symbols[k] = sym
	return nil
}

func (t *Table) AddFunction(def *functions.Definition) error {
	return t.Add(NewFnSymbol(def))
}

func (t *Table) AddField(name string, typ types.Type) error {
	return t.Add(NewFieldSymbol(name, typ))
}

func (t *Table) AddAlias(name, target string) error {
	return t.Add(NewAliasSymbol(name, target))
}

// Remove deletes name from this scope only.
func (t *Table) Remove(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(name)
	if _, ok := t.symbols[k]; !ok {
		return false
	}
	delete(t.symbols, k)
	return true
}

// Resolve looks name up in this scope and then in the enclosing scopes.
func (t *Table) Resolve(name string) (Symbol, bool) {
	k := key(name)
	for scope := t; scope != nil; scope = scope.parent {
		scope.mu.RLock()
		sym, ok := scope.symbols[k]
		scope.mu.RUnlock()
		if ok {
			return sym, true
		}
	}
	return nil, false
}

// ResolveAliases follows alias symbols until a non-alias symbol is reached.
// A chain longer than the table's alias depth, a chain that revisits a name
// and an alias naming an unknown symbol are errors.
func (t *Table) ResolveAliases(sym Symbol) (Symbol, error) {
	visited := make(map[string]struct{})
	for depth := 0; ; depth++ {
		alias, ok := sym.(*AliasSymbol)
		if !ok {
			return sym, nil
		}
		if depth >= t.maxAliasDepth {
			return nil, fmt.Errorf("%w: %s exceeds %d links", ErrAliasTooDeep, alias.name, t.maxAliasDepth)
		}
		k := key(alias.name)
		if _, seen := visited[k]; seen {
			return nil, fmt.Errorf("%w: %s", ErrAliasCycle, alias.name)
		}
		visited[k] = struct{}{}
		next, found := t.Resolve(alias.target)
		if !found {
			return nil, fmt.Errorf("%w: alias %s points to %s", ErrUnknownSymbol, alias.name, alias.target)
		}
		sym = next
	}
}

// Lookup combines Resolve and ResolveAliases.
func (t *Table) Lookup(name string) (Symbol, error) {
	sym, ok := t.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, name)
	}
	return t.ResolveAliases(sym)
}

// FunctionNames returns the sorted names of all visible function symbols.
func (t *Table) FunctionNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for scope := t; scope != nil; scope = scope.parent {
		scope.mu.RLock()
		for k, sym := range scope.symbols {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			if sym.Kind() == KindFunction {
				names = append(names, sym.Name())
			}
		}
		scope.mu.RUnlock()
	}
	sort.Strings(names)
	return names
}

// Fields returns the field symbols visible from this scope.
func (t *Table) Fields() []*FieldSymbol {
	seen := make(map[string]struct{})
	var fields []*FieldSymbol
	for scope := t; scope != nil; scope = scope.parent {
		scope.mu.RLock()
		for k, sym := range scope.symbols {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			if f, ok := sym.(*FieldSymbol); ok {
				fields = append(fields, f)
			}
		}
		scope.mu.RUnlock()
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })
	return fields
}
