package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFramePushPop(t *testing.T) {
	t.Run("LIFO order", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)

		frame.Push(IntValue(10))
		frame.Push(IntValue(20))
		frame.Push(IntValue(30))

		require.Equal(t, int32(30), frame.Pop().Int)
		require.Equal(t, int32(20), frame.Pop().Int)
		require.Equal(t, int32(10), frame.Pop().Int)
	})

	t.Run("push after pop reuses space", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)

		frame.Push(IntValue(1))
		frame.Push(IntValue(2))
		frame.Pop()

		frame.Push(IntValue(3))
		require.Equal(t, int32(3), frame.Pop().Int)
		require.Equal(t, int32(1), frame.Pop().Int)
	})

	t.Run("peek does not consume", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)
		frame.Push(IntValue(42))
		require.Equal(t, int32(42), frame.Peek().Int)
		require.Equal(t, int32(42), frame.Pop().Int)
	})

	t.Run("negative values", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)
		frame.Push(IntValue(-100))
		require.Equal(t, int32(-100), frame.Pop().Int)
	})

	t.Run("overflow panics", func(t *testing.T) {
		frame := newTestFrame(0, 1, nil)
		frame.Push(IntValue(1))
		require.Panics(t, func() { frame.Push(IntValue(2)) })
	})

	t.Run("underflow panics", func(t *testing.T) {
		frame := newTestFrame(0, 1, nil)
		require.Panics(t, func() { frame.Pop() })
	})
}

func TestFrameLocalVars(t *testing.T) {
	t.Run("basic set and get", func(t *testing.T) {
		frame := newTestFrame(4, 10, nil)

		frame.SetLocal(0, IntValue(10))
		frame.SetLocal(1, IntValue(20))
		frame.SetLocal(2, IntValue(30))
		frame.SetLocal(3, IntValue(40))

		require.Equal(t, int32(10), frame.GetLocal(0).Int)
		require.Equal(t, int32(20), frame.GetLocal(1).Int)
		require.Equal(t, int32(30), frame.GetLocal(2).Int)
		require.Equal(t, int32(40), frame.GetLocal(3).Int)
	})

	t.Run("overwrite local variable", func(t *testing.T) {
		frame := newTestFrame(4, 10, nil)
		frame.SetLocal(0, IntValue(10))
		frame.SetLocal(0, IntValue(99))
		require.Equal(t, int32(99), frame.GetLocal(0).Int)
	})

	t.Run("local vars independent from stack", func(t *testing.T) {
		frame := newTestFrame(4, 10, nil)
		frame.SetLocal(0, IntValue(10))
		frame.Push(IntValue(99))

		require.Equal(t, int32(10), frame.GetLocal(0).Int)
		require.Equal(t, int32(99), frame.Pop().Int)
	})
}

func TestFrameSetArgsCategory2(t *testing.T) {
	frame := newTestFrame(4, 10, nil)
	frame.SetArgs([]Value{IntValue(1), LongValue(2), IntValue(3)})

	require.Equal(t, int32(1), frame.GetLocal(0).Int)
	require.Equal(t, int64(2), frame.GetLocal(1).Long)
	require.Equal(t, int32(3), frame.GetLocal(3).Int) // long occupied slots 1 and 2
}

func TestFrameReadOperands(t *testing.T) {
	code := []byte{0x01, 0xFF, 0x02, 0x03, 0xFF, 0xFF, 0xFF, 0xFE}
	frame := newTestFrame(0, 0, code)

	require.Equal(t, uint8(0x01), frame.ReadU8())
	require.Equal(t, int8(-1), frame.ReadI8())
	require.Equal(t, uint16(0x0203), frame.ReadU16())
	require.Equal(t, int32(-2), frame.ReadI32())
}
