package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bu-lang/bu/pkg/gc"
	"github.com/bu-lang/bu/pkg/strintern"
	"github.com/bu-lang/bu/pkg/value"
)

func TestArithmeticPromotion(t *testing.T) {
	// 1 + 2.5 -> Double(3.5).
	a := value.Int(1)
	b := value.Double(2.5)
	kind, err := value.Promote(a, b)
	require.NoError(t, err)
	require.Equal(t, value.KindDouble, kind)

	wa := value.Widen(a, kind)
	wb := value.Widen(b, kind)
	require.Equal(t, 3.5, wa.Double()+wb.Double())
}

func TestPromotionLattice(t *testing.T) {
	cases := []struct {
		a, b value.Value
		want value.Kind
	}{
		{value.Byte(1), value.Int(2), value.KindInt},
		{value.Int(1), value.UInt(2), value.KindUInt},
		{value.UInt(1), value.Float(2), value.KindFloat},
		{value.Float(1), value.Double(2), value.KindDouble},
		{value.Byte(1), value.Byte(2), value.KindByte},
	}
	for _, c := range cases {
		got, err := value.Promote(c.a, c.b)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}

func TestPromotionRejectsNonNumeric(t *testing.T) {
	_, err := value.Promote(value.Nil, value.Int(1))
	require.Error(t, err)
}

func TestTruthy(t *testing.T) {
	require.False(t, value.Nil.Truthy())
	require.False(t, value.Bool(false).Truthy())
	require.True(t, value.Bool(true).Truthy())
	require.True(t, value.Int(0).Truthy())
}

func TestStringEqualityIsPointerEquality(t *testing.T) {
	pool := strintern.New(0)
	a := value.Str(pool.InternString("hi"))
	b := value.Str(pool.InternString("hi"))
	require.True(t, value.Equal(a, b))
}

func TestHeapContainerEqualityIsIdentity(t *testing.T) {
	c := gc.New()
	c.SetRoots(noopRoots{})
	h := value.NewHeap(c)
	a := h.NewArray(nil)
	b := h.NewArray(nil)
	require.False(t, value.Equal(a, b))
	require.True(t, value.Equal(a, a))
}

func TestEmptyArrayIsValidButHasNoElements(t *testing.T) {
	c := gc.New()
	c.SetRoots(noopRoots{})
	h := value.NewHeap(c)
	v := h.NewArray(nil)
	arr := v.Obj.(*value.Array)
	require.Len(t, arr.Elements, 0)
}

type noopRoots struct{}

func (noopRoots) GCRoots(push func(gc.Object)) {}
