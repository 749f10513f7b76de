package functions

import (
	"fmt"

	"github.com/rulego/flowsql/types"
)

// Function 可执行函数实例，只有两种实现：*Scalar 和 *Aggregate。
// 同一个实例被所有引用该符号的调用点共享，因此实现不能保存任何调用点级别的可变状态。
type Function interface {
	// Name returns the registered function name.
	Name() string
	// AutoPromote reports whether call sites coerce argument values to the
	// concretized argument types before invoking the function.
	AutoPromote() bool

	sealed()
}

// ScalarFunc is the body of a scalar function. args is borrowed for the
// duration of the call and must not be retained.
type ScalarFunc func(args []interface{}) (interface{}, error)

// Option configures a function instance.
type Option func(*options)

type options struct {
	rawArgs bool
}

// WithRawArgs disables argument coercion: the function receives values as the
// argument expressions produced them.
func WithRawArgs() Option {
	return func(o *options) { o.rawArgs = true }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Scalar 标量函数：无状态，每个事件调用一次。
type Scalar struct {
	name        string
	autoPromote bool
	fn          ScalarFunc
}

// NewScalar creates a scalar function.
func NewScalar(name string, fn ScalarFunc, opts ...Option) *Scalar {
	o := applyOptions(opts)
	return &Scalar{name: name, autoPromote: !o.rawArgs, fn: fn}
}

func (s *Scalar) Name() string      { return s.name }
func (s *Scalar) AutoPromote() bool { return s.autoPromote }
func (s *Scalar) sealed()           {}

// Eval invokes the function body.
func (s *Scalar) Eval(args []interface{}) (interface{}, error) {
	return s.fn(args)
}

// AggregateFunc 聚合函数的类型化实现。T 是单个桶内的状态。
//
// Add folds one non-nil value into a state and returns the new state. Finish
// reduces the states of a window's buckets, ordered by window time, into the
// result. ret is the concretized return type of the call site.
type AggregateFunc[T any] interface {
	Init() T
	Add(state T, v interface{}, ret types.Type) (T, error)
	Finish(states []T, ret types.Type) (interface{}, error)
}

// Aggregate 聚合函数：按桶累积，按窗口输出。
type Aggregate struct {
	name        string
	autoPromote bool
	init        func() interface{}
	add         func(state, v interface{}, ret types.Type) (interface{}, error)
	finish      func(states []interface{}, ret types.Type) (interface{}, error)
}

// NewAggregate erases the state type of impl. NULL values are skipped before
// they reach impl.Add.
func NewAggregate[T any](name string, impl AggregateFunc[T], opts ...Option) *Aggregate {
	o := applyOptions(opts)
	return &Aggregate{
		name:        name,
		autoPromote: !o.rawArgs,
		init:        func() interface{} { return impl.Init() },
		add: func(state, v interface{}, ret types.Type) (interface{}, error) {
			return impl.Add(state.(T), v, ret)
		},
		finish: func(states []interface{}, ret types.Type) (interface{}, error) {
			typed := make([]T, len(states))
			for i, s := range states {
				typed[i] = s.(T)
			}
			return impl.Finish(typed, ret)
		},
	}
}

func (a *Aggregate) Name() string      { return a.name }
func (a *Aggregate) AutoPromote() bool { return a.autoPromote }
func (a *Aggregate) sealed()           {}

// NewBucket creates an empty bucket owned by this function.
func (a *Aggregate) NewBucket() *Bucket {
	return &Bucket{owner: a, state: a.init()}
}

// Accumulate folds v into bucket. Accumulating into a sealed bucket or a
// bucket created by another function panics.
func (a *Aggregate) Accumulate(v interface{}, bucket *Bucket, ret types.Type) error {
	a.checkOwner(bucket)
	if bucket.sealed {
		panic(fmt.Sprintf("functions: %s: accumulate into sealed bucket", a.name))
	}
	bucket.adds++
	if v == nil {
		return nil
	}
	next, err := a.add(bucket.state, v, ret)
	if err != nil {
		return err
	}
	bucket.state = next
	return nil
}

// FinishWindow reduces the ordered buckets of one window into a single value.
func (a *Aggregate) FinishWindow(buckets []*Bucket, ret types.Type) (interface{}, error) {
	states := make([]interface{}, len(buckets))
	for i, b := range buckets {
		a.checkOwner(b)
		states[i] = b.state
	}
	return a.finish(states, ret)
}

func (a *Aggregate) checkOwner(b *Bucket) {
	if b == nil {
		panic(fmt.Sprintf("functions: %s: nil bucket", a.name))
	}
	if b.owner != a {
		panic(fmt.Sprintf("functions: %s: bucket belongs to %s", a.name, b.owner.name))
	}
}

// Bucket 单个窗口分片上的聚合状态，对调用方不透明。
type Bucket struct {
	owner  *Aggregate
	state  interface{}
	adds   int64
	sealed bool
}

// Seal marks the bucket read-only. Sealed buckets may still be finalized.
func (b *Bucket) Seal() { b.sealed = true }

// Sealed reports whether Seal was called.
func (b *Bucket) Sealed() bool { return b.sealed }

// Adds returns how many values, NULL included, were accumulated.
func (b *Bucket) Adds() int64 { return b.adds }

// Match dispatches on the concrete function variant. Every variant must be
// handled; an unknown implementation panics.
func Match[R any](fn Function, onScalar func(*Scalar) R, onAggregate func(*Aggregate) R) R {
	switch f := fn.(type) {
	case *Scalar:
		return onScalar(f)
	case *Aggregate:
		return onAggregate(f)
	}
	panic(fmt.Sprintf("functions: unknown function variant %T", fn))
}

// IsAggregate reports whether fn is the aggregate variant.
func IsAggregate(fn Function) bool {
	return Match(fn,
		func(*Scalar) bool { return false },
		func(*Aggregate) bool { return true })
}
