package functions

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/axiomhq/hyperloglog"
	"github.com/rulego/flowsql/types"
	"github.com/rulego/flowsql/utils/cast"
)

// bitmapAgg 精确去重计数，只接受整数
type bitmapAgg struct{}

func (bitmapAgg) Init() *roaring64.Bitmap { return roaring64.New() }

func (bitmapAgg) Add(bm *roaring64.Bitmap, v interface{}, _ types.Type) (*roaring64.Bitmap, error) {
	i, err := cast.ToInt64(v)
	if err != nil {
		return bm, err
	}
	bm.Add(uint64(i))
	return bm, nil
}

func (bitmapAgg) Finish(states []*roaring64.Bitmap, _ types.Type) (interface{}, error) {
	union := roaring64.New()
	for _, bm := range states {
		union.Or(bm)
	}
	return int64(union.GetCardinality()), nil
}

// sketchAgg 基于HyperLogLog的近似去重计数
type sketchAgg struct{}

func (sketchAgg) Init() *hyperloglog.Sketch { return hyperloglog.New() }

func (sketchAgg) Add(sk *hyperloglog.Sketch, v interface{}, _ types.Type) (*hyperloglog.Sketch, error) {
	s, err := cast.ToString(v)
	if err != nil {
		s = fmt.Sprint(v)
	}
	sk.Insert([]byte(s))
	return sk, nil
}

func (sketchAgg) Finish(states []*hyperloglog.Sketch, _ types.Type) (interface{}, error) {
	merged := hyperloglog.New()
	for _, sk := range states {
		if err := merged.Merge(sk); err != nil {
			return nil, fmt.Errorf("approx_count_distinct: %w", err)
		}
	}
	return int64(merged.Estimate()), nil
}

func newCountDistinctFunction() *Definition {
	integralT := types.Universal("I", types.ClassIntegral)
	return aggregateDef[*roaring64.Bitmap]("count_distinct", []types.Type{integralT}, types.Int64,
		"Exact number of distinct integer values", bitmapAgg{})
}

func newApproxCountDistinctFunction() *Definition {
	def := aggregateDef[*hyperloglog.Sketch]("approx_count_distinct", []types.Type{anyT}, types.Int64,
		"Approximate number of distinct values", sketchAgg{})
	def.Aliases = []string{"dcount"}
	return def
}
