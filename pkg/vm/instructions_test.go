package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestVM() *VM {
	return NewVM(newSingleClassLoader())
}

func TestExecConstFamily(t *testing.T) {
	vm := newTestVM()
	frame := newTestFrame(0, 10, []byte{})

	_, done, err := vm.executeInstruction(frame, OpIconst5)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, int32(5), frame.Pop().Int)

	_, _, err = vm.executeInstruction(frame, OpLconst1)
	require.NoError(t, err)
	require.Equal(t, int64(1), frame.Pop().Long)

	_, _, err = vm.executeInstruction(frame, OpAconstNull)
	require.NoError(t, err)
	require.True(t, frame.Pop().IsNull())
}

func TestExecBipushSipush(t *testing.T) {
	vm := newTestVM()
	frame := newTestFrame(0, 10, []byte{0x7F, 0x01, 0x00})
	_, _, err := vm.executeInstruction(frame, OpBipush)
	require.NoError(t, err)
	require.Equal(t, int32(127), frame.Pop().Int)

	_, _, err = vm.executeInstruction(frame, OpSipush)
	require.NoError(t, err)
	require.Equal(t, int32(256), frame.Pop().Int)
}

func TestExecLoadStoreFamily(t *testing.T) {
	vm := newTestVM()
	frame := newTestFrame(4, 10, []byte{2})
	frame.SetLocal(2, IntValue(77))

	_, _, err := vm.executeInstruction(frame, OpIload2)
	require.NoError(t, err)
	require.Equal(t, int32(77), frame.Pop().Int)

	frame.Push(IntValue(123))
	_, _, err = vm.executeInstruction(frame, OpIstore3)
	require.NoError(t, err)
	require.Equal(t, int32(123), frame.GetLocal(3).Int)
}

func TestExecLoadWithExplicitIndex(t *testing.T) {
	vm := newTestVM()
	frame := newTestFrame(4, 10, []byte{3})
	frame.SetLocal(3, LongValue(999))

	_, _, err := vm.executeInstruction(frame, OpLload)
	require.NoError(t, err)
	require.Equal(t, int64(999), frame.Pop().Long)
}

func TestExecArrayLoadStore(t *testing.T) {
	vm := newTestVM()
	handle := vm.Heap.AllocateArray('I', "", 3)

	frame := newTestFrame(0, 10, nil)
	frame.Push(ObjectRef(handle))
	frame.Push(IntValue(1))
	frame.Push(IntValue(55))
	_, _, err := vm.executeInstruction(frame, OpIastore)
	require.NoError(t, err)

	frame.Push(ObjectRef(handle))
	frame.Push(IntValue(1))
	_, _, err = vm.executeInstruction(frame, OpIaload)
	require.NoError(t, err)
	require.Equal(t, int32(55), frame.Pop().Int)
}

func TestExecArrayLoadOutOfBoundsThrows(t *testing.T) {
	vm := newTestVM()
	handle := vm.Heap.AllocateArray('I', "", 2)

	frame := newTestFrame(0, 10, nil)
	frame.Push(ObjectRef(handle))
	frame.Push(IntValue(5))
	_, _, err := vm.executeInstruction(frame, OpIaload)
	require.Error(t, err)
	javaExc, ok := err.(*JavaException)
	require.True(t, ok)
	require.Equal(t, "java/lang/ArrayIndexOutOfBoundsException", javaExc.ClassName)
}

func TestExecStackFamily(t *testing.T) {
	vm := newTestVM()
	frame := newTestFrame(0, 10, nil)

	frame.Push(IntValue(1))
	frame.Push(IntValue(2))
	_, _, err := vm.executeInstruction(frame, OpSwap)
	require.NoError(t, err)
	require.Equal(t, int32(1), frame.Pop().Int)
	require.Equal(t, int32(2), frame.Pop().Int)

	frame.Push(IntValue(9))
	_, _, err = vm.executeInstruction(frame, OpDup)
	require.NoError(t, err)
	require.Equal(t, int32(9), frame.Pop().Int)
	require.Equal(t, int32(9), frame.Pop().Int)

	frame.Push(LongValue(42)) // category 2: dup2 duplicates the single slot
	_, _, err = vm.executeInstruction(frame, OpDup2)
	require.NoError(t, err)
	require.Equal(t, int64(42), frame.Pop().Long)
	require.Equal(t, int64(42), frame.Pop().Long)
}

func TestExecArithFamily(t *testing.T) {
	vm := newTestVM()

	t.Run("iadd", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)
		frame.Push(IntValue(3))
		frame.Push(IntValue(4))
		_, _, err := vm.executeInstruction(frame, OpIadd)
		require.NoError(t, err)
		require.Equal(t, int32(7), frame.Pop().Int)
	})

	t.Run("idiv by zero throws ArithmeticException", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)
		frame.Push(IntValue(1))
		frame.Push(IntValue(0))
		_, _, err := vm.executeInstruction(frame, OpIdiv)
		require.Error(t, err)
		javaExc, ok := err.(*JavaException)
		require.True(t, ok)
		require.Equal(t, "java/lang/ArithmeticException", javaExc.ClassName)
	})

	t.Run("drem matches Java's IEEE remainder", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)
		frame.Push(DoubleValue(5.5))
		frame.Push(DoubleValue(2))
		_, _, err := vm.executeInstruction(frame, OpDrem)
		require.NoError(t, err)
		require.InDelta(t, 1.5, frame.Pop().Dbl, 1e-9)
	})

	t.Run("iinc", func(t *testing.T) {
		frame := newTestFrame(1, 0, []byte{0, 5})
		frame.SetLocal(0, IntValue(10))
		_, _, err := vm.executeInstruction(frame, OpIinc)
		require.NoError(t, err)
		require.Equal(t, int32(15), frame.GetLocal(0).Int)
	})
}

func TestExecConvertFamily(t *testing.T) {
	vm := newTestVM()

	t.Run("i2l", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)
		frame.Push(IntValue(-1))
		_, _, err := vm.executeInstruction(frame, OpI2l)
		require.NoError(t, err)
		require.Equal(t, int64(-1), frame.Pop().Long)
	})

	t.Run("i2b narrows and sign-extends", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)
		frame.Push(IntValue(0x1FF))
		_, _, err := vm.executeInstruction(frame, OpI2b)
		require.NoError(t, err)
		require.Equal(t, int32(-1), frame.Pop().Int) // 0xFF as signed byte
	})

	t.Run("fcmpg treats NaN as greater", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)
		frame.Push(FloatValue(float32(nan())))
		frame.Push(FloatValue(1))
		_, _, err := vm.executeInstruction(frame, OpFcmpg)
		require.NoError(t, err)
		require.Equal(t, int32(1), frame.Pop().Int)
	})

	t.Run("fcmpl treats NaN as less", func(t *testing.T) {
		frame := newTestFrame(0, 10, nil)
		frame.Push(FloatValue(float32(nan())))
		frame.Push(FloatValue(1))
		_, _, err := vm.executeInstruction(frame, OpFcmpl)
		require.NoError(t, err)
		require.Equal(t, int32(-1), frame.Pop().Int)
	})
}

func nan() float64 {
	var zero float64
	return zero / zero
}

// Branch opcodes compute their target as (PC-just-past-the-opcode-byte - 1) +
// offset, so these tests include a leading placeholder byte for the opcode
// itself and start frame.PC at 1, mirroring how invoke()'s dispatch loop
// always advances PC past the opcode before calling executeInstruction.
func TestExecControlBranches(t *testing.T) {
	vm := newTestVM()
	code := []byte{0x00, 0x00, 0x04, 0xAC}
	frame := newTestFrame(0, 10, code)
	frame.PC = 1
	frame.Push(IntValue(0))
	_, _, err := vm.executeInstruction(frame, OpIfeq)
	require.NoError(t, err)
	require.Equal(t, 4, frame.PC)
}

func TestExecGoto(t *testing.T) {
	vm := newTestVM()
	code := []byte{0x00, 0x00, 0x0A}
	frame := newTestFrame(0, 10, code)
	frame.PC = 1
	_, _, err := vm.executeInstruction(frame, OpGoto)
	require.NoError(t, err)
	require.Equal(t, 10, frame.PC)
}

func TestExecReturnFamily(t *testing.T) {
	vm := newTestVM()
	frame := newTestFrame(0, 10, nil)
	frame.Push(IntValue(42))
	v, done, err := vm.executeInstruction(frame, OpIreturn)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, int32(42), v.Int)

	frame2 := newTestFrame(0, 10, nil)
	_, done, err = vm.executeInstruction(frame2, OpReturn)
	require.NoError(t, err)
	require.True(t, done)
}

func TestExecWideLoad(t *testing.T) {
	vm := newTestVM()
	// wide iload <index=300>
	code := []byte{OpIload, 0x01, 0x2C}
	frame := newTestFrame(301, 10, code)
	frame.SetLocal(300, IntValue(7))
	frame.PC = 0
	_, _, err := vm.executeInstruction(frame, OpWide)
	require.NoError(t, err)
	require.Equal(t, int32(7), frame.Pop().Int)
}

func TestExecWideIinc(t *testing.T) {
	vm := newTestVM()
	// wide iinc <index=0> <delta=-1>
	code := []byte{OpIinc, 0x00, 0x00, 0xFF, 0xFF}
	frame := newTestFrame(1, 0, code)
	frame.SetLocal(0, IntValue(10))
	frame.PC = 0
	_, _, err := vm.executeInstruction(frame, OpWide)
	require.NoError(t, err)
	require.Equal(t, int32(9), frame.GetLocal(0).Int)
}

func TestExecUnknownOpcode(t *testing.T) {
	vm := newTestVM()
	frame := newTestFrame(0, 0, nil)
	_, _, err := vm.executeInstruction(frame, 0xFE)
	require.Error(t, err)
}
