package functions

import (
	"errors"
	"fmt"
	"math"

	"github.com/rulego/flowsql/types"
	"github.com/rulego/flowsql/utils/cast"
	"github.com/shopspring/decimal"
)

var (
	anyT     = types.Universal("T", types.ClassAny)
	numericT = types.Universal("N", types.ClassNumeric)
)

// countAgg 计数，忽略NULL
type countAgg struct{}

func (countAgg) Init() int64 { return 0 }

func (countAgg) Add(n int64, _ interface{}, _ types.Type) (int64, error) {
	return n + 1, nil
}

func (countAgg) Finish(states []int64, _ types.Type) (interface{}, error) {
	var total int64
	for _, n := range states {
		total += n
	}
	return total, nil
}

// sumState 求和状态，按返回类型选择累加字段
type sumState struct {
	n int64
	i int64
	f float64
	d decimal.Decimal
}

type sumAgg struct{}

// ErrIntegerOverflow 整数结果超出返回类型的范围
var ErrIntegerOverflow = errors.New("integer overflow")

func addInt64(a, b int64) (int64, error) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return a, fmt.Errorf("sum: %w adding %d to %d", ErrIntegerOverflow, b, a)
	}
	return c, nil
}

func (sumAgg) Init() sumState { return sumState{} }

func (sumAgg) Add(s sumState, v interface{}, ret types.Type) (sumState, error) {
	switch ret.Kind() {
	case types.KindInt32, types.KindInt64:
		i, err := cast.ToInt64(v)
		if err != nil {
			return s, err
		}
		if s.i, err = addInt64(s.i, i); err != nil {
			return s, err
		}
	case types.KindFloat64:
		f, err := cast.ToFloat64(v)
		if err != nil {
			return s, err
		}
		s.f += f
	case types.KindDecimal:
		d, err := cast.ToDecimal(v)
		if err != nil {
			return s, err
		}
		s.d = s.d.Add(d)
	default:
		return s, fmt.Errorf("sum: unsupported type %s", ret)
	}
	s.n++
	return s, nil
}

func (sumAgg) Finish(states []sumState, ret types.Type) (interface{}, error) {
	var total sumState
	for _, s := range states {
		var err error
		total.n += s.n
		if total.i, err = addInt64(total.i, s.i); err != nil {
			return nil, err
		}
		total.f += s.f
		total.d = total.d.Add(s.d)
	}
	if total.n == 0 {
		return nil, nil
	}
	switch ret.Kind() {
	case types.KindInt32:
		if total.i < math.MinInt32 || total.i > math.MaxInt32 {
			return nil, fmt.Errorf("sum: %w, %d does not fit %s", ErrIntegerOverflow, total.i, ret)
		}
		return int32(total.i), nil
	case types.KindInt64:
		return total.i, nil
	case types.KindFloat64:
		return total.f, nil
	case types.KindDecimal:
		return total.d, nil
	}
	return nil, fmt.Errorf("sum: unsupported type %s", ret)
}

type avgState struct {
	n   int64
	sum float64
}

type avgAgg struct{}

func (avgAgg) Init() avgState { return avgState{} }

func (avgAgg) Add(s avgState, v interface{}, _ types.Type) (avgState, error) {
	f, err := cast.ToFloat64(v)
	if err != nil {
		return s, err
	}
	s.n++
	s.sum += f
	return s, nil
}

func (avgAgg) Finish(states []avgState, _ types.Type) (interface{}, error) {
	var total avgState
	for _, s := range states {
		total.n += s.n
		total.sum += s.sum
	}
	if total.n == 0 {
		return nil, nil
	}
	return total.sum / float64(total.n), nil
}

// extremeAgg 最大/最小值，dir为1取最大，-1取最小
type extremeAgg struct {
	dir int
}

type extremeState struct {
	v   interface{}
	set bool
}

func (extremeAgg) Init() extremeState { return extremeState{} }

func (a extremeAgg) Add(s extremeState, v interface{}, _ types.Type) (extremeState, error) {
	if !s.set {
		return extremeState{v: v, set: true}, nil
	}
	c, err := Compare(v, s.v)
	if err != nil {
		return s, err
	}
	if c == a.dir {
		s.v = v
	}
	return s, nil
}

func (a extremeAgg) Finish(states []extremeState, ret types.Type) (interface{}, error) {
	var best extremeState
	for _, s := range states {
		if !s.set {
			continue
		}
		var err error
		if best, err = a.Add(best, s.v, ret); err != nil {
			return nil, err
		}
	}
	return best.v, nil
}

// positionalAgg first/last，结果依赖桶的顺序
type positionalAgg struct {
	last bool
}

func (positionalAgg) Init() extremeState { return extremeState{} }

func (a positionalAgg) Add(s extremeState, v interface{}, _ types.Type) (extremeState, error) {
	if s.set && !a.last {
		return s, nil
	}
	return extremeState{v: v, set: true}, nil
}

func (a positionalAgg) Finish(states []extremeState, _ types.Type) (interface{}, error) {
	if a.last {
		for i := len(states) - 1; i >= 0; i-- {
			if states[i].set {
				return states[i].v, nil
			}
		}
		return nil, nil
	}
	for _, s := range states {
		if s.set {
			return s.v, nil
		}
	}
	return nil, nil
}

// welford 韦尔福德算法状态，跨桶用Chan公式合并
type welford struct {
	n    int64
	mean float64
	m2   float64
}

func (w welford) merge(o welford) welford {
	if o.n == 0 {
		return w
	}
	if w.n == 0 {
		return o
	}
	n := w.n + o.n
	delta := o.mean - w.mean
	return welford{
		n:    n,
		mean: w.mean + delta*float64(o.n)/float64(n),
		m2:   w.m2 + o.m2 + delta*delta*float64(w.n)*float64(o.n)/float64(n),
	}
}

type stddevAgg struct{}

func (stddevAgg) Init() welford { return welford{} }

func (stddevAgg) Add(w welford, v interface{}, _ types.Type) (welford, error) {
	f, err := cast.ToFloat64(v)
	if err != nil {
		return w, err
	}
	w.n++
	delta := f - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (f - w.mean)
	return w, nil
}

func (stddevAgg) Finish(states []welford, _ types.Type) (interface{}, error) {
	var total welford
	for _, w := range states {
		total = total.merge(w)
	}
	if total.n == 0 {
		return nil, nil
	}
	return math.Sqrt(total.m2 / float64(total.n)), nil
}

func newCountFunction() *Definition {
	return aggregateDef[int64]("count", []types.Type{anyT}, types.Int64, "Count non-NULL values", countAgg{})
}

func newSumFunction() *Definition {
	return aggregateDef[sumState]("sum", []types.Type{numericT}, numericT, "Sum of values", sumAgg{})
}

func newAvgFunction() *Definition {
	def := aggregateDef[avgState]("avg", []types.Type{numericT}, types.Float64, "Average of values", avgAgg{})
	def.Aliases = []string{"mean"}
	return def
}

func newMinFunction() *Definition {
	return aggregateDef[extremeState]("min", []types.Type{ordT}, ordT, "Minimum value", extremeAgg{dir: -1})
}

func newMaxFunction() *Definition {
	return aggregateDef[extremeState]("max", []types.Type{ordT}, ordT, "Maximum value", extremeAgg{dir: 1})
}

func newFirstFunction() *Definition {
	def := aggregateDef[extremeState]("first", []types.Type{anyT}, anyT, "First non-NULL value of the window", positionalAgg{})
	def.Aliases = []string{"first_value"}
	return def
}

func newLastFunction() *Definition {
	def := aggregateDef[extremeState]("last", []types.Type{anyT}, anyT, "Last non-NULL value of the window", positionalAgg{last: true})
	def.Aliases = []string{"last_value"}
	return def
}

func newStdDevFunction() *Definition {
	return aggregateDef[welford]("stddev", []types.Type{numericT}, types.Float64, "Population standard deviation", stddevAgg{})
}
