package gc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bu-lang/bu/pkg/gc"
)

type fakeObj struct {
	h    gc.Header
	kind string
	refs []*fakeObj
}

func (f *fakeObj) GCHeader() *gc.Header { return &f.h }
func (f *fakeObj) Kind() string         { return f.kind }
func (f *fakeObj) Size() int64          { return 64 }
func (f *fakeObj) Destroy()             {}
func (f *fakeObj) Blacken(push func(gc.Object)) {
	for _, r := range f.refs {
		push(r)
	}
}

type fakeRoots struct{ live []*fakeObj }

func (r *fakeRoots) GCRoots(push func(gc.Object)) {
	for _, o := range r.live {
		push(o)
	}
}

func TestCollectReclaimsUnreachable(t *testing.T) {
	c := gc.New()
	roots := &fakeRoots{}
	c.SetRoots(roots)

	kept := &fakeObj{kind: "array"}
	c.Register(kept)
	roots.live = []*fakeObj{kept}

	for i := 0; i < 10000; i++ {
		o := &fakeObj{kind: "array"}
		c.Register(o)
	}
	require.EqualValues(t, 10001, c.Count("array"))

	c.Collect()

	require.EqualValues(t, 1, c.Count("array"))
	require.EqualValues(t, kept.Size(), c.BytesAllocated())
}

func TestMarkingAlreadyMarkedIsNoop(t *testing.T) {
	c := gc.New()
	a := &fakeObj{kind: "x"}
	b := &fakeObj{kind: "x"}
	a.refs = []*fakeObj{b, b, b}
	roots := &fakeRoots{live: []*fakeObj{a}}
	c.SetRoots(roots)
	c.Register(a)
	c.Register(b)

	require.NotPanics(t, func() { c.Collect() })
	require.EqualValues(t, 2, c.Count("x"))
}

func TestThresholdClampedToRange(t *testing.T) {
	c := gc.New()
	c.SetRoots(&fakeRoots{})
	c.Collect()
	require.GreaterOrEqual(t, c.NextThreshold(), int64(gc.MinThreshold))
	require.LessOrEqual(t, c.NextThreshold(), int64(gc.MaxThreshold))
}

func TestCollectGuardResetsBetweenCycles(t *testing.T) {
	c := gc.New()
	c.SetRoots(&fakeRoots{})
	c.Collect()
	c.Collect()
	require.EqualValues(t, 2, c.Cycles())
}

func TestConfigureOverridesThresholdBounds(t *testing.T) {
	c := gc.New()
	c.Configure(2<<20, 3.0, 1<<20, 4<<20)
	require.EqualValues(t, 2<<20, c.NextThreshold())

	c.SetRoots(&fakeRoots{})
	c.Collect()
	require.GreaterOrEqual(t, c.NextThreshold(), int64(1<<20))
	require.LessOrEqual(t, c.NextThreshold(), int64(4<<20))
}

func TestConfigureZeroValuesLeaveBoundsUnchanged(t *testing.T) {
	c := gc.New()
	before := c.NextThreshold()
	c.Configure(0, 0, 0, 0)
	require.Equal(t, before, c.NextThreshold())
}
