package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewJavaExceptionAllocatesHeapObject(t *testing.T) {
	v := NewVM(newSingleClassLoader())
	exc := v.NewJavaException("java/lang/ArithmeticException", "/ by zero")

	require.Equal(t, "java/lang/ArithmeticException", exc.ClassName)
	handle, ok := HandleOf(exc.Ref)
	require.True(t, ok)

	obj := v.Heap.Object(handle)
	require.NotNil(t, obj)
	require.Equal(t, "java/lang/ArithmeticException", obj.ClassName)
	require.Equal(t, "/ by zero", obj.Fields["message"].Ref)
}

func TestNewJavaExceptionEmptyMessageSetsNoField(t *testing.T) {
	v := NewVM(newSingleClassLoader())
	exc := v.NewJavaException("java/lang/RuntimeException", "")

	handle, _ := HandleOf(exc.Ref)
	obj := v.Heap.Object(handle)
	_, ok := obj.Fields["message"]
	require.False(t, ok)
}

func TestJavaExceptionError(t *testing.T) {
	exc := &JavaException{ClassName: "java/lang/NullPointerException"}
	require.Contains(t, exc.Error(), "NullPointerException")
}
