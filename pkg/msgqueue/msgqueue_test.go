package msgqueue_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bu-lang/bu/pkg/msgqueue"
	"github.com/bu-lang/bu/pkg/value"
)

func TestFIFOOrderPerSender(t *testing.T) {
	var q msgqueue.Queue
	q.Send(1, "ping", value.Int(1))
	q.Send(2, "ping", value.Int(2))
	q.Send(1, "pong", value.Int(3))

	require.Equal(t, 3, q.Count())

	m, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(1), m.FromProcessID)
	require.Equal(t, int32(1), m.Value.Int())

	m, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(2), m.FromProcessID)

	m, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, "pong", m.Type)

	_, ok = q.Pop()
	require.False(t, ok)
}

func TestHasTypeAndClear(t *testing.T) {
	var q msgqueue.Queue
	q.Send(1, "damage", value.Int(5))
	require.True(t, q.HasType("damage"))
	require.False(t, q.HasType("heal"))

	q.Clear()
	require.Equal(t, 0, q.Count())
	require.False(t, q.HasType("damage"))
}

func TestPeekDoesNotConsume(t *testing.T) {
	var q msgqueue.Queue
	q.Send(1, "x", value.Int(9))
	m, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, int32(9), m.Value.Int())
	require.Equal(t, 1, q.Count())
}
