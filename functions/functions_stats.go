package functions

import (
	"github.com/montanaflynn/stats"
	"github.com/rulego/flowsql/types"
	"github.com/rulego/flowsql/utils/cast"
)

// sampleAgg 保留窗口内全部样本，结束时交给stats计算
// minN is the smallest sample count with a defined result.
type sampleAgg struct {
	fn   func(stats.Float64Data) (float64, error)
	minN int
}

func (sampleAgg) Init() []float64 { return nil }

func (sampleAgg) Add(s []float64, v interface{}, _ types.Type) ([]float64, error) {
	f, err := cast.ToFloat64(v)
	if err != nil {
		return s, err
	}
	return append(s, f), nil
}

func (a sampleAgg) Finish(states [][]float64, _ types.Type) (interface{}, error) {
	var n int
	for _, s := range states {
		n += len(s)
	}
	if n < a.minN {
		return nil, nil
	}
	data := make(stats.Float64Data, 0, n)
	for _, s := range states {
		data = append(data, s...)
	}
	return a.fn(data)
}

func newMedianFunction() *Definition {
	return aggregateDef[[]float64]("median", []types.Type{numericT}, types.Float64,
		"Median of values", sampleAgg{fn: stats.Median, minN: 1})
}

func newVarianceFunction() *Definition {
	def := aggregateDef[[]float64]("var", []types.Type{numericT}, types.Float64,
		"Population variance", sampleAgg{fn: stats.PopulationVariance, minN: 1})
	def.Aliases = []string{"var_pop"}
	return def
}

func newSampleVarianceFunction() *Definition {
	def := aggregateDef[[]float64]("var_s", []types.Type{numericT}, types.Float64,
		"Sample variance", sampleAgg{fn: stats.SampleVariance, minN: 2})
	def.Aliases = []string{"var_samp"}
	return def
}

func newSampleStdDevFunction() *Definition {
	def := aggregateDef[[]float64]("stddev_s", []types.Type{numericT}, types.Float64,
		"Sample standard deviation", sampleAgg{fn: stats.StandardDeviationSample, minN: 2})
	def.Aliases = []string{"stddev_samp"}
	return def
}
