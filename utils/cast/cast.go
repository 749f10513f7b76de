/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cast converts runtime values between FlowSQL types.
//
// Values use one Go representation per kind: bool, int32, int64, float64,
// decimal.Decimal, string, time.Time and map[string]interface{}. nil is NULL
// and passes through every conversion unchanged.
package cast

import (
	"fmt"
	"math"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/rulego/flowsql/types"
	"github.com/shopspring/decimal"
	spfcast "github.com/spf13/cast"
	"golang.org/x/exp/constraints"
)

// TimestampLayout is the strftime pattern used when a TIMESTAMP is promoted to STRING.
const TimestampLayout = "%Y-%m-%d %H:%M:%S"

var timestampFormatter = mustFormatter(TimestampLayout)

func mustFormatter(pattern string) *strftime.Strftime {
	f, err := strftime.New(pattern)
	if err != nil {
		panic(err)
	}
	return f
}

// CanCoerce reports whether Coerce accepts the pair.
func CanCoerce(from, to types.Type) bool {
	return from.PromotesTo(to)
}

// Coerce 将类型为from的值转换为类型to的表示。
// The pair must be a legal promotion; anything else is a programming error
// and panics. An error is returned only when v does not actually hold a
// value of type from.
func Coerce(v interface{}, from, to types.Type) (interface{}, error) {
	if !from.PromotesTo(to) {
		panic(fmt.Sprintf("cast: illegal coercion from %s to %s", from, to))
	}
	if v == nil {
		return nil, nil
	}
	switch to.Kind() {
	case types.KindNull:
		return nil, nil
	case types.KindBool:
		return spfcast.ToBoolE(v)
	case types.KindInt32:
		return ToInt32(v)
	case types.KindInt64:
		if from.Kind() == types.KindTimestamp {
			t, err := ToTime(v)
			if err != nil {
				return nil, err
			}
			return t.UnixMilli(), nil
		}
		return ToInt64(v)
	case types.KindFloat64:
		if from.Kind() == types.KindTimestamp {
			t, err := ToTime(v)
			if err != nil {
				return nil, err
			}
			return float64(t.UnixMilli()), nil
		}
		if d, ok := v.(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f, nil
		}
		return spfcast.ToFloat64E(v)
	case types.KindDecimal:
		if from.Kind() == types.KindTimestamp {
			t, err := ToTime(v)
			if err != nil {
				return nil, err
			}
			return decimal.NewFromInt(t.UnixMilli()), nil
		}
		return ToDecimal(v)
	case types.KindString:
		return ToString(v)
	case types.KindTimestamp:
		return ToTime(v)
	case types.KindRecord:
		return spfcast.ToStringMapE(v)
	}
	panic(fmt.Sprintf("cast: no representation for %s", to))
}

// Widen converts any Go integer to int64.
func Widen[T constraints.Integer](v T) int64 {
	return int64(v)
}

// ToInt64 converts integers, integral floats and numeric strings to int64.
// A float with a fractional part or outside the int64 range is an error.
func ToInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		return floatToInt64(x)
	case float32:
		return floatToInt64(float64(x))
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("unable to cast %d of type uint64 to int64: out of range", x)
		}
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, fmt.Errorf("unable to cast %d of type uint to int64: out of range", x)
		}
		return int64(x), nil
	case int32:
		return Widen(x), nil
	case int:
		return Widen(x), nil
	case int16:
		return Widen(x), nil
	case int8:
		return Widen(x), nil
	case uint32:
		return Widen(x), nil
	case decimal.Decimal:
		if !x.IsInteger() {
			return 0, fmt.Errorf("unable to cast %v of type decimal to int64", x)
		}
		return x.IntPart(), nil
	}
	return spfcast.ToInt64E(v)
}

// 2^63, float64可以精确表示
const int64Bound = float64(1 << 63)

func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("unable to cast %v of type float64 to an integer", f)
	}
	if f < -int64Bound || f >= int64Bound {
		return 0, fmt.Errorf("unable to cast %v of type float64 to int64: out of range", f)
	}
	return int64(f), nil
}

// ToInt32 converts like ToInt64 and rejects values outside the int32 range.
func ToInt32(v interface{}) (int32, error) {
	if x, ok := v.(int32); ok {
		return x, nil
	}
	i, err := ToInt64(v)
	if err != nil {
		return 0, err
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, fmt.Errorf("unable to cast %d to int32: out of range", i)
	}
	return int32(i), nil
}

// ToDecimal converts numbers and numeric strings to decimal.Decimal.
func ToDecimal(v interface{}) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Decimal{}, fmt.Errorf("unable to cast %v to decimal", x)
		}
		return decimal.NewFromFloat(x), nil
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return decimal.Decimal{}, fmt.Errorf("unable to cast %v to decimal", x)
		}
		return decimal.NewFromFloat32(x), nil
	case string:
		return decimal.NewFromString(x)
	}
	i, err := ToInt64(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unable to cast %#v of type %T to decimal", v, v)
	}
	return decimal.NewFromInt(i), nil
}

// ToString renders a value the way a STRING consumer expects it.
func ToString(v interface{}) (string, error) {
	switch x := v.(type) {
	case time.Time:
		return timestampFormatter.FormatString(x), nil
	case decimal.Decimal:
		return x.String(), nil
	}
	return spfcast.ToStringE(v)
}

// ToTime accepts time.Time values, unix milliseconds of any numeric type
// and date strings.
func ToTime(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case int64:
		return time.UnixMilli(x), nil
	case int:
		return time.UnixMilli(int64(x)), nil
	case int32:
		return time.UnixMilli(int64(x)), nil
	case float64:
		return time.UnixMilli(int64(x)), nil
	case float32:
		return time.UnixMilli(int64(x)), nil
	}
	return spfcast.ToTimeE(v)
}

// ToFloat64 converts numeric values, including decimals, to float64.
func ToFloat64(v interface{}) (float64, error) {
	if d, ok := v.(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f, nil
	}
	return spfcast.ToFloat64E(v)
}
