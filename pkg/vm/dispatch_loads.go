package vm

import "jvmcore/pkg/classfile"

// execConst handles aconst_null, iconst/lconst/fconst/dconst, bipush,
// sipush and the ldc family.
func (vm *VM) execConst(frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpAconstNull:
		frame.Push(NullValue())
	case OpIconstM1:
		frame.Push(IntValue(-1))
	case OpIconst0:
		frame.Push(IntValue(0))
	case OpIconst1:
		frame.Push(IntValue(1))
	case OpIconst2:
		frame.Push(IntValue(2))
	case OpIconst3:
		frame.Push(IntValue(3))
	case OpIconst4:
		frame.Push(IntValue(4))
	case OpIconst5:
		frame.Push(IntValue(5))
	case OpLconst0:
		frame.Push(LongValue(0))
	case OpLconst1:
		frame.Push(LongValue(1))
	case OpFconst0:
		frame.Push(FloatValue(0))
	case OpFconst1:
		frame.Push(FloatValue(1))
	case OpFconst2:
		frame.Push(FloatValue(2))
	case OpDconst0:
		frame.Push(DoubleValue(0))
	case OpDconst1:
		frame.Push(DoubleValue(1))
	case OpBipush:
		frame.Push(IntValue(int32(frame.ReadI8())))
	case OpSipush:
		frame.Push(IntValue(int32(frame.ReadI16())))
	case OpLdc:
		return vm.executeLdc(frame, uint16(frame.ReadU8()))
	case OpLdcW:
		return vm.executeLdc(frame, frame.ReadU16())
	case OpLdc2W:
		return vm.executeLdc2(frame, frame.ReadU16())
	}
	return Value{}, false, nil
}

func (vm *VM) executeLdc(frame *Frame, index uint16) (Value, bool, error) {
	entry := frame.Class.ConstantPool[index]
	switch e := entry.(type) {
	case *classfile.ConstantInteger:
		frame.Push(IntValue(e.Value))
	case *classfile.ConstantFloat:
		frame.Push(FloatValue(e.Value))
	case *classfile.ConstantString:
		s, err := classfile.GetUtf8(frame.Class.ConstantPool, e.StringIndex)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(vm.internString(s))
	case *classfile.ConstantClass:
		name, err := classfile.GetClassName(frame.Class.ConstantPool, e.NameIndex)
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(vm.classObjectFor(name))
	default:
		return Value{}, false, vmRuntimeErrorf("ldc: unsupported constant pool entry at index %d", index)
	}
	return Value{}, false, nil
}

func (vm *VM) executeLdc2(frame *Frame, index uint16) (Value, bool, error) {
	entry := frame.Class.ConstantPool[index]
	switch e := entry.(type) {
	case *classfile.ConstantLong:
		frame.Push(LongValue(e.Value))
	case *classfile.ConstantDouble:
		frame.Push(DoubleValue(e.Value))
	default:
		return Value{}, false, vmRuntimeErrorf("ldc2_w: unsupported constant pool entry at index %d", index)
	}
	return Value{}, false, nil
}

// execLoad handles the {i,l,f,d,a}load[_n] family.
func (vm *VM) execLoad(frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpIload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
	case OpLload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
	case OpFload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
	case OpDload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
	case OpAload:
		frame.Push(frame.GetLocal(int(frame.ReadU8())))
	case OpIload0, OpLload0, OpFload0, OpDload0, OpAload0:
		frame.Push(frame.GetLocal(0))
	case OpIload1, OpLload1, OpFload1, OpDload1, OpAload1:
		frame.Push(frame.GetLocal(1))
	case OpIload2, OpLload2, OpFload2, OpDload2, OpAload2:
		frame.Push(frame.GetLocal(2))
	case OpIload3, OpLload3, OpFload3, OpDload3, OpAload3:
		frame.Push(frame.GetLocal(3))
	}
	return Value{}, false, nil
}

// execStore handles the {i,l,f,d,a}store[_n] family.
func (vm *VM) execStore(frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpIstore, OpLstore, OpFstore, OpDstore, OpAstore:
		idx := int(frame.ReadU8())
		frame.SetLocal(idx, frame.Pop())
	case OpIstore0, OpLstore0, OpFstore0, OpDstore0, OpAstore0:
		frame.SetLocal(0, frame.Pop())
	case OpIstore1, OpLstore1, OpFstore1, OpDstore1, OpAstore1:
		frame.SetLocal(1, frame.Pop())
	case OpIstore2, OpLstore2, OpFstore2, OpDstore2, OpAstore2:
		frame.SetLocal(2, frame.Pop())
	case OpIstore3, OpLstore3, OpFstore3, OpDstore3, OpAstore3:
		frame.SetLocal(3, frame.Pop())
	}
	return Value{}, false, nil
}

// execArrayLoad handles {i,l,f,d,a,b,c,s}aload: pop index then arrayref,
// push the element.
func (vm *VM) execArrayLoad(frame *Frame, opcode byte) (Value, bool, error) {
	index := frame.Pop()
	arrRef := frame.Pop()
	arr, err := vm.resolveArray(arrRef)
	if err != nil {
		return Value{}, false, err
	}
	i := index.Int
	if i < 0 || int(i) >= len(arr.Elements) {
		exc := vm.NewJavaException("java/lang/ArrayIndexOutOfBoundsException", "")
		return Value{}, false, exc
	}
	v := arr.Elements[i]
	switch opcode {
	case OpBaload:
		frame.Push(IntValue(v.Int))
	case OpCaload:
		frame.Push(IntValue(v.Int & 0xFFFF))
	case OpSaload:
		frame.Push(IntValue(v.Int))
	default:
		frame.Push(v)
	}
	return Value{}, false, nil
}

// execArrayStore handles {i,l,f,d,a,b,c,s}astore: pop value, index, arrayref.
func (vm *VM) execArrayStore(frame *Frame, opcode byte) (Value, bool, error) {
	value := frame.Pop()
	index := frame.Pop()
	arrRef := frame.Pop()
	arr, err := vm.resolveArray(arrRef)
	if err != nil {
		return Value{}, false, err
	}
	i := index.Int
	if i < 0 || int(i) >= len(arr.Elements) {
		exc := vm.NewJavaException("java/lang/ArrayIndexOutOfBoundsException", "")
		return Value{}, false, exc
	}
	switch opcode {
	case OpBastore, OpCastore, OpSastore:
		arr.Elements[i] = IntValue(value.Int)
	default:
		arr.Elements[i] = value
	}
	return Value{}, false, nil
}

// execWide handles the wide-prefixed forms of {i,l,f,d,a}load/store, ret and
// iinc, which widen their local variable index from one byte to two.
func (vm *VM) execWide(frame *Frame) (Value, bool, error) {
	modifiedOpcode := frame.ReadU8()
	index := int(frame.ReadU16())
	switch modifiedOpcode {
	case OpIload, OpLload, OpFload, OpDload, OpAload:
		frame.Push(frame.GetLocal(index))
	case OpIstore, OpLstore, OpFstore, OpDstore, OpAstore:
		frame.SetLocal(index, frame.Pop())
	case OpRet:
		frame.PC = int(frame.GetLocal(index).Int)
	case OpIinc:
		delta := frame.ReadI16()
		local := frame.GetLocal(index)
		frame.SetLocal(index, IntValue(local.Int+int32(delta)))
	default:
		return Value{}, false, vmRuntimeErrorf("wide: unsupported modified opcode 0x%02X", modifiedOpcode)
	}
	return Value{}, false, nil
}

func (vm *VM) resolveArray(ref Value) (*JArray, error) {
	if ref.IsNull() {
		exc := vm.NewJavaException("java/lang/NullPointerException", "")
		return nil, exc
	}
	handle, ok := HandleOf(ref)
	if !ok {
		return nil, vmRuntimeErrorf("expected array reference, got %v", ref)
	}
	arr := vm.Heap.Array(handle)
	if arr == nil {
		return nil, vmRuntimeErrorf("handle %d is not an array", handle)
	}
	return arr, nil
}
