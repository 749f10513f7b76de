package functions

import "github.com/rulego/flowsql/types"

var ordT = types.Universal("T", types.ClassOrdered)

func newGreatestFunction() *Definition {
	return scalarDef("greatest", TypeConditional, []types.Type{ordT, ordT}, ordT,
		"Return the larger of two values, NULL if either is NULL",
		func(args []interface{}) (interface{}, error) {
			return pick(args, 1)
		})
}

func newLeastFunction() *Definition {
	return scalarDef("least", TypeConditional, []types.Type{ordT, ordT}, ordT,
		"Return the smaller of two values, NULL if either is NULL",
		func(args []interface{}) (interface{}, error) {
			return pick(args, -1)
		})
}

// pick returns the argument that compares in direction dir against all others.
func pick(args []interface{}, dir int) (interface{}, error) {
	best := args[0]
	if best == nil {
		return nil, nil
	}
	for _, arg := range args[1:] {
		if arg == nil {
			return nil, nil
		}
		c, err := Compare(arg, best)
		if err != nil {
			return nil, err
		}
		if c == dir {
			best = arg
		}
	}
	return best, nil
}

func newCoalesceFunction() *Definition {
	anyT := types.Universal("T", types.ClassAny)
	return scalarDef("coalesce", TypeConditional, []types.Type{anyT, anyT}, anyT,
		"Return first non-NULL value",
		func(args []interface{}) (interface{}, error) {
			for _, arg := range args {
				if arg != nil {
					return arg, nil
				}
			}
			return nil, nil
		})
}
