package privates_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bu-lang/bu/pkg/privates"
)

func TestLookupResolvesEveryDocumentedSlot(t *testing.T) {
	for i, name := range privates.Names() {
		idx, ok := privates.Lookup(name)
		require.True(t, ok, "slot %q not found", name)
		require.Equal(t, privates.Index(i), idx)
	}
}

func TestLookupRejectsUnknownName(t *testing.T) {
	_, ok := privates.Lookup("not_a_real_slot")
	require.False(t, ok)
}

func TestCountMatchesSlotTableLength(t *testing.T) {
	require.Equal(t, len(privates.Names()), int(privates.Count))
}
