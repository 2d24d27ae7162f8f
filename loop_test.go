package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoopRunOneOrdersFIFO(t *testing.T) {
	l := NewLoop()
	var order []int
	l.Post(func() { order = append(order, 1) })
	l.Post(func() { order = append(order, 2) })
	l.Post(func() { order = append(order, 3) })

	require.True(t, l.RunOne())
	require.True(t, l.RunOne())
	require.True(t, l.RunOne())
	require.False(t, l.RunOne())
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestLoopDrainRunsTurnsScheduledByTurns(t *testing.T) {
	l := NewLoop()
	var order []int
	l.Post(func() {
		order = append(order, 1)
		l.Post(func() { order = append(order, 2) })
	})
	l.Drain()
	require.Equal(t, []int{1, 2}, order)
}

func TestLoopRunOneEmpty(t *testing.T) {
	l := NewLoop()
	require.False(t, l.RunOne())
}
