package functions

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rulego/flowsql/types"
)

// FunctionRegistry 函数注册器，名称和别名都不区分大小写
type FunctionRegistry struct {
	mu         sync.RWMutex
	functions  map[string]*Definition
	aliases    map[string]string
	categories map[FunctionType][]*Definition
}

// 全局函数注册器实例
var globalRegistry = NewFunctionRegistry()

// NewFunctionRegistry 创建新的函数注册器
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions:  make(map[string]*Definition),
		aliases:    make(map[string]string),
		categories: make(map[FunctionType][]*Definition),
	}
}

// Register 注册函数
func (r *FunctionRegistry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.ToLower(def.Name)
	if r.taken(name) {
		return fmt.Errorf("function %s already registered", name)
	}
	for _, alias := range def.Aliases {
		if r.taken(strings.ToLower(alias)) {
			return fmt.Errorf("function alias %s already registered", alias)
		}
	}

	r.functions[name] = def
	for _, alias := range def.Aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
	r.categories[def.Type] = append(r.categories[def.Type], def)
	return nil
}

func (r *FunctionRegistry) taken(name string) bool {
	_, fn := r.functions[name]
	_, alias := r.aliases[name]
	return fn || alias
}

// Get 获取函数，支持别名
func (r *FunctionRegistry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.ToLower(name)
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	def, exists := r.functions[name]
	return def, exists
}

// GetByType 按类型获取函数列表
func (r *FunctionRegistry) GetByType(fnType FunctionType) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*Definition(nil), r.categories[fnType]...)
}

// ListAll 列出所有注册的函数
func (r *FunctionRegistry) ListAll() map[string]*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Definition, len(r.functions))
	for name, def := range r.functions {
		result[name] = def
	}
	return result
}

// Names returns the sorted names of all registered functions, without aliases.
func (r *FunctionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister 注销函数及其别名
func (r *FunctionRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.ToLower(name)
	def, exists := r.functions[name]
	if !exists {
		return false
	}
	delete(r.functions, name)
	for _, alias := range def.Aliases {
		delete(r.aliases, strings.ToLower(alias))
	}

	defs := r.categories[def.Type]
	for i, d := range defs {
		if d == def {
			r.categories[def.Type] = append(defs[:i], defs[i+1:]...)
			break
		}
	}
	return true
}

// 全局函数注册和获取方法
func Register(def *Definition) error {
	return globalRegistry.Register(def)
}

func Get(name string) (*Definition, bool) {
	return globalRegistry.Get(name)
}

func GetByType(fnType FunctionType) []*Definition {
	return globalRegistry.GetByType(fnType)
}

func ListAll() map[string]*Definition {
	return globalRegistry.ListAll()
}

func Names() []string {
	return globalRegistry.Names()
}

func Unregister(name string) bool {
	return globalRegistry.Unregister(name)
}

// Global returns the process-wide registry holding the built-in functions.
func Global() *FunctionRegistry {
	return globalRegistry
}

// RegisterCustomFunction 注册自定义标量函数
func RegisterCustomFunction(name string, args []types.Type, ret types.Type, description string, fn ScalarFunc) error {
	return Register(scalarDef(name, TypeCustom, args, ret, description, fn))
}
