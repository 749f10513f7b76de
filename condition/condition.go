package condition

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
	arc "github.com/hashicorp/golang-lru/arc/v2"
	"github.com/rulego/flowsql/dataset"
)

// DefaultCacheSize is the number of compiled programs kept by Compile.
const DefaultCacheSize = 256

// Condition is a boolean predicate over an event.
type Condition interface {
	// Evaluate runs the predicate against a prepared environment; any runtime error is false.
	Evaluate(env interface{}) bool
	// Match runs the predicate against the fields of an event.
	Match(ev dataset.EventWrapper) (bool, error)
	// Fields returns the event fields the predicate reads, sorted.
	Fields() []string
	String() string
}

type ExprCondition struct {
	source  string
	program *vm.Program
	fields  []string
}

var programCache = mustCache(DefaultCacheSize)

func mustCache(size int) *arc.ARCCache[string, *ExprCondition] {
	c, err := arc.NewARC[string, *ExprCondition](size)
	if err != nil {
		panic(err)
	}
	return c
}

// Compile 返回表达式对应的条件，相同的表达式复用已编译的程序。
func Compile(expression string) (Condition, error) {
	key := strings.TrimSpace(expression)
	if c, ok := programCache.Get(key); ok {
		return c, nil
	}
	c, err := newExprCondition(key)
	if err != nil {
		return nil, err
	}
	programCache.Add(key, c)
	return c, nil
}

// NewExprCondition compiles a predicate without touching the cache.
func NewExprCondition(expression string) (Condition, error) {
	c, err := newExprCondition(strings.TrimSpace(expression))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newExprCondition(expression string) (*ExprCondition, error) {
	if expression == "" {
		return nil, fmt.Errorf("empty condition")
	}
	fields, err := Identifiers(expression)
	if err != nil {
		return nil, err
	}
	options := []expr.Option{
		expr.Function("like_match", func(params ...any) (any, error) {
			if len(params) != 2 {
				return false, fmt.Errorf("like_match function requires 2 parameters")
			}
			text, ok1 := params[0].(string)
			pattern, ok2 := params[1].(string)
			if !ok1 || !ok2 {
				return false, fmt.Errorf("like_match function requires string parameters")
			}
			return matchesLikePattern(text, pattern), nil
		}),
		expr.Function("is_null", func(params ...any) (any, error) {
			if len(params) != 1 {
				return false, fmt.Errorf("is_null function requires 1 parameter")
			}
			return params[0] == nil, nil
		}),
		expr.Function("is_not_null", func(params ...any) (any, error) {
			if len(params) != 1 {
				return false, fmt.Errorf("is_not_null function requires 1 parameter")
			}
			return params[0] != nil, nil
		}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	}
	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, err
	}
	return &ExprCondition{source: expression, program: program, fields: fields}, nil
}

func (ec *ExprCondition) Evaluate(env interface{}) bool {
	result, err := expr.Run(ec.program, env)
	if err != nil {
		return false
	}
	b, _ := result.(bool)
	return b
}

// Match 从事件中取出表达式引用的字段后求值，缺失字段为nil。
func (ec *ExprCondition) Match(ev dataset.EventWrapper) (bool, error) {
	env := make(map[string]interface{}, len(ec.fields))
	for _, name := range ec.fields {
		v, _ := ev.Field(name)
		env[name] = v
	}
	result, err := expr.Run(ec.program, env)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", ec.source, err)
	}
	b, _ := result.(bool)
	return b, nil
}

func (ec *ExprCondition) Fields() []string {
	out := make([]string, len(ec.fields))
	copy(out, ec.fields)
	return out
}

func (ec *ExprCondition) String() string {
	return ec.source
}

// Identifiers returns the top-level variables an expr-lang expression reads, sorted.
// Names in call position are functions and are not reported.
func Identifiers(expression string) ([]string, error) {
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, err
	}
	c := &identCollector{seen: map[string]struct{}{}, callees: map[string]struct{}{}}
	ast.Walk(&tree.Node, c)
	return c.names(), nil
}

// identCollector 收集标识符，调用位置的名字是函数不是字段
type identCollector struct {
	idents  []string
	seen    map[string]struct{}
	callees map[string]struct{}
}

func (c *identCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if _, ok := c.seen[n.Value]; !ok {
			c.seen[n.Value] = struct{}{}
			c.idents = append(c.idents, n.Value)
		}
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.callees[id.Value] = struct{}{}
		}
	}
}

func (c *identCollector) names() []string {
	out := []string{}
	for _, name := range c.idents {
		if _, ok := c.callees[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// matchesLikePattern 实现LIKE模式匹配
// 支持%（匹配任意字符序列）和_（匹配单个字符）
func matchesLikePattern(text, pattern string) bool {
	return likeMatch([]rune(text), []rune(pattern))
}

// likeMatch 迭代回溯实现，只记录最近一个%的位置
func likeMatch(text, pattern []rune) bool {
	ti, pi := 0, 0
	star, mark := -1, 0
	for ti < len(text) {
		switch {
		case pi < len(pattern) && pattern[pi] == '%':
			star, mark = pi, ti
			pi++
		case pi < len(pattern) && (pattern[pi] == '_' || pattern[pi] == text[ti]):
			ti++
			pi++
		case star >= 0:
			mark++
			ti = mark
			pi = star + 1
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '%' {
		pi++
	}
	return pi == len(pattern)
}
