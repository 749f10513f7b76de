/*
 * Copyright 2025 The RuleGo Authors.
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

package cast

import (
	"math"
	"testing"
	"time"

	"github.com/rulego/flowsql/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	tests := []struct {
		name     string
		value    interface{}
		from, to types.Type
		expected interface{}
	}{
		{"int32 to int64", int32(7), types.Int32, types.Int64, int64(7)},
		{"int32 to double", int32(7), types.Int32, types.Float64, 7.0},
		{"int32 to string", int32(7), types.Int32, types.String, "7"},
		{"int64 to decimal", int64(12), types.Int64, types.Decimal, decimal.NewFromInt(12)},
		{"double to string", 1.5, types.Float64, types.String, "1.5"},
		{"bool to string", true, types.Bool, types.String, "true"},
		{"decimal to string", decimal.RequireFromString("3.25"), types.Decimal, types.String, "3.25"},
		{"timestamp to bigint", ts, types.Timestamp, types.Int64, ts.UnixMilli()},
		{"timestamp to string", ts, types.Timestamp, types.String, "2024-05-06 07:08:09"},
		{"json number as int", 3.0, types.Int32, types.Int32, int32(3)},
		{"json number as bigint", 42.0, types.Int64, types.Int64, int64(42)},
		{"identity string", "x", types.String, types.String, "x"},
		{"null literal", nil, types.Null, types.Int64, nil},
		{"null value", nil, types.Int32, types.Int64, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.from, tt.to)
			require.NoError(t, err)
			if d, ok := tt.expected.(decimal.Decimal); ok {
				assert.True(t, d.Equal(got.(decimal.Decimal)))
				return
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestCoerce_IllegalPairPanics 非法的提升组合属于编程错误
func TestCoerce_IllegalPairPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = Coerce(int64(1), types.Int64, types.Int32) })
	assert.Panics(t, func() { _, _ = Coerce("a", types.String, types.Int64) })
	assert.Panics(t, func() { _, _ = Coerce(1, types.Int32, types.Universal("T", types.ClassAny)) })
}

func TestCoerce_InvalidValue(t *testing.T) {
	_, err := Coerce("abc", types.Int32, types.Int64)
	assert.Error(t, err)
}

// TestCoerce_RoundTrip 每个合法提升对的结果都能被目标类型直接接受
func TestCoerce_RoundTrip(t *testing.T) {
	samples := map[types.Type]interface{}{
		types.Bool:      true,
		types.Int32:     int32(-5),
		types.Int64:     int64(1 << 40),
		types.Float64:   2.25,
		types.Decimal:   decimal.RequireFromString("10.5"),
		types.String:    "hello",
		types.Timestamp: time.UnixMilli(1700000000000),
		types.Record:    map[string]interface{}{"a": 1},
	}
	for from, v := range samples {
		for to := range samples {
			if !CanCoerce(from, to) {
				continue
			}
			got, err := Coerce(v, from, to)
			require.NoError(t, err, "%s -> %s", from, to)
			again, err := Coerce(got, to, to)
			require.NoError(t, err, "%s -> %s", from, to)
			if d, ok := got.(decimal.Decimal); ok {
				assert.True(t, d.Equal(again.(decimal.Decimal)))
				continue
			}
			assert.Equal(t, got, again, "%s -> %s not stable", from, to)
		}
	}
}

func TestToInt64(t *testing.T) {
	v, err := ToInt64(int32(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
	v, err = ToInt64("17")
	require.NoError(t, err)
	assert.Equal(t, int64(17), v)
	_, err = ToInt64(decimal.RequireFromString("1.5"))
	assert.Error(t, err)
	assert.Equal(t, int64(300), Widen(uint16(300)))
}

// TestCoerce_IntegerRange 越界或带小数的值返回错误而不是截断
func TestCoerce_IntegerRange(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		to    types.Type
	}{
		{"bigint overflows int", int64(5000000000), types.Int32},
		{"negative overflow", int64(math.MinInt32) - 1, types.Int32},
		{"fractional int", 3.9, types.Int32},
		{"fractional bigint", -0.5, types.Int64},
		{"nan bigint", math.NaN(), types.Int64},
		{"huge bigint", 1e19, types.Int64},
		{"uint64 overflow", uint64(math.MaxUint64), types.Int64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Coerce(tt.value, tt.to, tt.to)
			assert.Error(t, err)
		})
	}

	v, err := Coerce(int64(math.MaxInt32), types.Int32, types.Int32)
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), v)
	v, err = Coerce(-2.0, types.Int64, types.Int64)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v)
}

// TestToDecimal_NonFinite NaN和无穷大没有十进制表示
func TestToDecimal_NonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := ToDecimal(f)
		assert.Error(t, err, "%v", f)
		assert.NotPanics(t, func() {
			_, err = Coerce(f, types.Float64, types.Decimal)
		})
		assert.Error(t, err, "%v", f)
	}
	_, err := ToDecimal(float32(math.Inf(1)))
	assert.Error(t, err)

	d, err := ToDecimal(2.5)
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("2.5")))
}

func TestToTime(t *testing.T) {
	got, err := ToTime(int64(1700000000000))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), got.UnixMilli())
}
