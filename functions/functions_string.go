package functions

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/rulego/flowsql/types"
	"github.com/segmentio/ksuid"
)

func stringArgs(name string, args []interface{}) ([]string, bool, error) {
	out := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			return nil, false, nil
		}
		s, ok := a.(string)
		if !ok {
			return nil, false, fmt.Errorf("%s: argument %d is %T, not a string", name, i, a)
		}
		out[i] = s
	}
	return out, true, nil
}

func unaryString(name, description string, ret types.Type, fn func(string) interface{}) *Definition {
	return scalarDef(name, TypeString, []types.Type{types.String}, ret, description,
		func(args []interface{}) (interface{}, error) {
			s, ok, err := stringArgs(name, args)
			if !ok || err != nil {
				return nil, err
			}
			return fn(s[0]), nil
		})
}

func newUpperFunction() *Definition {
	return unaryString("upper", "Convert to uppercase", types.String,
		func(s string) interface{} { return strings.ToUpper(s) })
}

func newLowerFunction() *Definition {
	return unaryString("lower", "Convert to lowercase", types.String,
		func(s string) interface{} { return strings.ToLower(s) })
}

func newLengthFunction() *Definition {
	def := unaryString("length", "Number of characters", types.Int64,
		func(s string) interface{} { return int64(utf8.RuneCountInString(s)) })
	def.Aliases = []string{"char_length"}
	return def
}

func newConcatFunction() *Definition {
	return scalarDef("concat", TypeString, []types.Type{types.String, types.String}, types.String,
		"Concatenate two strings",
		func(args []interface{}) (interface{}, error) {
			s, ok, err := stringArgs("concat", args)
			if !ok || err != nil {
				return nil, err
			}
			return s[0] + s[1], nil
		})
}

func newLevenshteinFunction() *Definition {
	return scalarDef("levenshtein", TypeString, []types.Type{types.String, types.String}, types.Int64,
		"Edit distance between two strings",
		func(args []interface{}) (interface{}, error) {
			s, ok, err := stringArgs("levenshtein", args)
			if !ok || err != nil {
				return nil, err
			}
			return int64(levenshtein.ComputeDistance(s[0], s[1])), nil
		})
}

func newKsuidFunction() *Definition {
	return scalarDef("ksuid", TypeString, nil, types.String, "Generate a K-sortable unique id",
		func([]interface{}) (interface{}, error) {
			return ksuid.New().String(), nil
		})
}
