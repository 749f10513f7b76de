package functions

// builtins lists the constructors of every built-in function.
var builtins = []func() *Definition{
	// 数学函数
	newAbsFunction,
	newRoundFunction,

	// 条件函数
	newGreatestFunction,
	newLeastFunction,
	newCoalesceFunction,

	// 字符串函数
	newUpperFunction,
	newLowerFunction,
	newLengthFunction,
	newConcatFunction,
	newLevenshteinFunction,
	newKsuidFunction,

	// 时间日期函数
	newToTimestampFunction,
	newStrftimeFunction,

	// 聚合函数
	newCountFunction,
	newSumFunction,
	newAvgFunction,
	newMinFunction,
	newMaxFunction,
	newFirstFunction,
	newLastFunction,
	newStdDevFunction,
	newSampleStdDevFunction,
	newVarianceFunction,
	newSampleVarianceFunction,
	newMedianFunction,
	newCountDistinctFunction,
	newApproxCountDistinctFunction,
}

// RegisterBuiltins adds every built-in function to r.
func RegisterBuiltins(r *FunctionRegistry) error {
	for _, newDef := range builtins {
		if err := r.Register(newDef()); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	if err := RegisterBuiltins(globalRegistry); err != nil {
		panic(err)
	}
}
