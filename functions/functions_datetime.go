package functions

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/lestrrat-go/strftime"
	"github.com/rulego/flowsql/types"
)

func newToTimestampFunction() *Definition {
	return scalarDef("to_timestamp", TypeDateTime, []types.Type{types.String}, types.Timestamp,
		"Parse a date/time string in any common layout, UTC unless the string has a zone",
		func(args []interface{}) (interface{}, error) {
			if args[0] == nil {
				return nil, nil
			}
			s, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("to_timestamp: argument is %T, not a string", args[0])
			}
			t, err := dateparse.ParseIn(s, time.UTC)
			if err != nil {
				return nil, fmt.Errorf("to_timestamp: %w", err)
			}
			return t, nil
		})
}

func newStrftimeFunction() *Definition {
	return scalarDef("strftime", TypeDateTime, []types.Type{types.String, types.Timestamp}, types.String,
		"Format a timestamp with a strftime pattern",
		func(args []interface{}) (interface{}, error) {
			if args[0] == nil || args[1] == nil {
				return nil, nil
			}
			pattern, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("strftime: format is %T, not a string", args[0])
			}
			ts, ok := args[1].(time.Time)
			if !ok {
				return nil, fmt.Errorf("strftime: value is %T, not a timestamp", args[1])
			}
			return strftime.Format(pattern, ts)
		})
}
