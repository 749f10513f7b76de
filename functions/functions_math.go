package functions

import (
	"fmt"
	"math"

	"github.com/rulego/flowsql/types"
	"github.com/shopspring/decimal"
)

func newAbsFunction() *Definition {
	numT := types.Universal("N", types.ClassNumeric)
	return scalarDef("abs", TypeMath, []types.Type{numT}, numT, "Return absolute value",
		func(args []interface{}) (interface{}, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case int32:
				if v == math.MinInt32 {
					return nil, fmt.Errorf("abs: %w, %d has no positive %s", ErrIntegerOverflow, v, types.Int32)
				}
				if v < 0 {
					return -v, nil
				}
				return v, nil
			case int64:
				if v == math.MinInt64 {
					return nil, fmt.Errorf("abs: %w, %d has no positive %s", ErrIntegerOverflow, v, types.Int64)
				}
				if v < 0 {
					return -v, nil
				}
				return v, nil
			case float64:
				return math.Abs(v), nil
			case decimal.Decimal:
				return v.Abs(), nil
			}
			return nil, fmt.Errorf("abs: unsupported value %T", args[0])
		})
}

func newRoundFunction() *Definition {
	return scalarDef("round", TypeMath, []types.Type{types.Float64}, types.Float64, "Round to the nearest integer",
		func(args []interface{}) (interface{}, error) {
			v, ok := args[0].(float64)
			if !ok {
				if args[0] == nil {
					return nil, nil
				}
				return nil, fmt.Errorf("round: unsupported value %T", args[0])
			}
			return math.Round(v), nil
		})
}
