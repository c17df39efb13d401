package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueEqualNumericCrossType(t *testing.T) {
	require.True(t, Int(1).Equal(Float(1.0)))
	require.False(t, Int(1).Equal(Float(1.5)))
}

func TestValueCompareThreeValued(t *testing.T) {
	_, isNull, err := Int(1).Compare(Null())
	require.NoError(t, err)
	require.True(t, isNull)
}

func TestValueCompareIncompatible(t *testing.T) {
	_, _, err := Int(1).Compare(String("a"))
	require.Error(t, err)
	require.True(t, ErrIncomparableType.Is(err))
}

func TestArithmeticIntPromotion(t *testing.T) {
	v, err := Arithmetic("+", Int(2), Float(3.5))
	require.NoError(t, err)
	require.Equal(t, KindFloat, v.Kind())
	require.Equal(t, 5.5, v.AsFloat())
}

func TestArithmeticIntDivisionAlwaysFloat(t *testing.T) {
	v, err := Arithmetic("/", Int(4), Int(2))
	require.NoError(t, err)
	require.Equal(t, KindFloat, v.Kind())
	require.Equal(t, 2.0, v.AsFloat())
}

func TestArithmeticDivisionByZeroIsNull(t *testing.T) {
	v, err := Arithmetic("/", Int(4), Int(0))
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestArithmeticModByZeroIsNull(t *testing.T) {
	v, err := Arithmetic("%", Int(4), Int(0))
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestArithmeticNullPropagates(t *testing.T) {
	v, err := Arithmetic("+", Null(), Int(1))
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestArithmeticStringConcat(t *testing.T) {
	v, err := Arithmetic("+", String("foo"), String("bar"))
	require.NoError(t, err)
	require.Equal(t, "foobar", v.AsString())
}

func TestArithmeticListConcat(t *testing.T) {
	v, err := Arithmetic("+", List([]Value{Int(1)}), List([]Value{Int(2)}))
	require.NoError(t, err)
	require.Len(t, v.AsList(), 2)
}

func TestSortValuesStableAndNullsLast(t *testing.T) {
	vals := []Value{Int(2), Null(), Int(1), Int(2)}
	SortValues(vals, false)
	require.Equal(t, int64(1), vals[0].AsInt())
	require.Equal(t, int64(2), vals[1].AsInt())
	require.Equal(t, int64(2), vals[2].AsInt())
	require.True(t, vals[3].IsNull())
}
