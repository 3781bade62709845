package vm

import "jvmcore/pkg/classfile"

// execObject handles field access, object/array allocation, array length,
// throw, type checks, and the monitor no-ops.
func (vm *VM) execObject(frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpGetstatic:
		return vm.execGetstatic(frame)
	case OpPutstatic:
		return vm.execPutstatic(frame)
	case OpGetfield:
		return vm.execGetfield(frame)
	case OpPutfield:
		return vm.execPutfield(frame)
	case OpNew:
		return vm.execNew(frame)
	case OpNewarray:
		return vm.execNewarray(frame)
	case OpAnewarray:
		return vm.execAnewarray(frame)
	case OpMultianewarray:
		return vm.execMultianewarray(frame)
	case OpArraylength:
		arr, err := vm.resolveArray(frame.Pop())
		if err != nil {
			return Value{}, false, err
		}
		frame.Push(IntValue(arr.Length()))
	case OpAthrow:
		ref := frame.Pop()
		return vm.throwValue(ref)
	case OpCheckcast:
		return vm.execCheckcast(frame)
	case OpInstanceof:
		return vm.execInstanceof(frame)
	case OpMonitorenter, OpMonitorexit:
		frame.Pop() // single-threaded interpreter: monitors are no-ops
	case OpIfnull:
		return vm.branchNullCheck(frame, true)
	case OpIfnonnull:
		return vm.branchNullCheck(frame, false)
	}
	return Value{}, false, nil
}

func (vm *VM) branchNullCheck(frame *Frame, wantNull bool) (Value, bool, error) {
	branchPC := frame.PC - 1
	offset := frame.ReadI16()
	v := frame.Pop()
	if v.IsNull() == wantNull {
		frame.PC = branchPC + int(offset)
	}
	return Value{}, false, nil
}

func (vm *VM) throwValue(ref Value) (Value, bool, error) {
	if ref.IsNull() {
		return Value{}, false, vm.NewJavaException("java/lang/NullPointerException", "")
	}
	handle, ok := HandleOf(ref)
	if !ok {
		return Value{}, false, vmRuntimeErrorf("athrow: operand is not an object reference")
	}
	obj := vm.Heap.Object(handle)
	if obj == nil {
		return Value{}, false, vmRuntimeErrorf("athrow: handle %d is not an object", handle)
	}
	return Value{}, false, &JavaException{ClassName: obj.ClassName, Ref: ref}
}

func (vm *VM) execGetstatic(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveFieldref(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	if err := vm.ensureInitialized(ref.ClassName); err != nil {
		return Value{}, false, err
	}
	frame.Push(vm.getStaticField(ref.ClassName, ref.FieldName))
	return Value{}, false, nil
}

func (vm *VM) execPutstatic(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveFieldref(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	if err := vm.ensureInitialized(ref.ClassName); err != nil {
		return Value{}, false, err
	}
	val := frame.Pop()
	vm.setStaticField(ref.ClassName, ref.FieldName, val)
	return Value{}, false, nil
}

func (vm *VM) execGetfield(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveFieldref(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	objRef := frame.Pop()
	if objRef.IsNull() {
		return Value{}, false, vm.NewJavaException("java/lang/NullPointerException", "")
	}
	handle, ok := HandleOf(objRef)
	if !ok {
		return Value{}, false, vmRuntimeErrorf("getfield: operand is not an object reference")
	}
	obj := vm.Heap.Object(handle)
	if obj == nil {
		return Value{}, false, vmRuntimeErrorf("getfield: handle %d is not an object", handle)
	}
	v, ok := obj.Fields[ref.FieldName]
	if !ok {
		v = zeroValueForDescriptor(ref.Descriptor)
	}
	frame.Push(v)
	return Value{}, false, nil
}

func (vm *VM) execPutfield(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveFieldref(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	val := frame.Pop()
	objRef := frame.Pop()
	if objRef.IsNull() {
		return Value{}, false, vm.NewJavaException("java/lang/NullPointerException", "")
	}
	handle, ok := HandleOf(objRef)
	if !ok {
		return Value{}, false, vmRuntimeErrorf("putfield: operand is not an object reference")
	}
	obj := vm.Heap.Object(handle)
	if obj == nil {
		return Value{}, false, vmRuntimeErrorf("putfield: handle %d is not an object", handle)
	}
	obj.Fields[ref.FieldName] = val
	return Value{}, false, nil
}

func zeroValueForDescriptor(descriptor string) Value {
	ft, err := classfile.ParseFieldDescriptor(descriptor)
	if err != nil {
		return NullValue()
	}
	return zeroValueFor(ft.Kind)
}

func (vm *VM) execNew(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	className, err := classfile.GetClassName(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	if bridged, ok := newBridgedInstance(className); ok {
		frame.Push(bridged)
		return Value{}, false, nil
	}
	if err := vm.ensureInitialized(className); err != nil {
		return Value{}, false, err
	}
	handle := vm.Heap.AllocateObject(className)
	frame.Push(ObjectRef(handle))
	return Value{}, false, nil
}

func (vm *VM) execNewarray(frame *Frame) (Value, bool, error) {
	atype := frame.ReadU8()
	length := frame.Pop().Int
	if length < 0 {
		return Value{}, false, vm.NewJavaException("java/lang/NegativeArraySizeException", "")
	}
	elemType := primitiveArrayElementType(atype)
	handle := vm.Heap.AllocateArray(elemType, "", length)
	frame.Push(ObjectRef(handle))
	return Value{}, false, nil
}

func primitiveArrayElementType(atype uint8) byte {
	switch atype {
	case ArrayTypeBoolean:
		return 'Z'
	case ArrayTypeChar:
		return 'C'
	case ArrayTypeFloat:
		return 'F'
	case ArrayTypeDouble:
		return 'D'
	case ArrayTypeByte:
		return 'B'
	case ArrayTypeShort:
		return 'S'
	case ArrayTypeInt:
		return 'I'
	case ArrayTypeLong:
		return 'J'
	default:
		return 'I'
	}
}

func (vm *VM) execAnewarray(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	className, err := classfile.GetClassName(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	length := frame.Pop().Int
	if length < 0 {
		return Value{}, false, vm.NewJavaException("java/lang/NegativeArraySizeException", "")
	}
	handle := vm.Heap.AllocateArray('L', className, length)
	frame.Push(ObjectRef(handle))
	return Value{}, false, nil
}

func (vm *VM) execMultianewarray(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	dimensions := frame.ReadU8()
	className, err := classfile.GetClassName(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	counts := make([]int32, dimensions)
	for i := int(dimensions) - 1; i >= 0; i-- {
		counts[i] = frame.Pop().Int
	}
	ref, err := vm.buildMultiArray(className, counts)
	if err != nil {
		return Value{}, false, err
	}
	frame.Push(ref)
	return Value{}, false, nil
}

func (vm *VM) buildMultiArray(elementClass string, counts []int32) (Value, error) {
	if counts[0] < 0 {
		return Value{}, vm.NewJavaException("java/lang/NegativeArraySizeException", "")
	}
	if len(counts) == 1 {
		handle := vm.Heap.AllocateArray('L', elementClass, counts[0])
		return ObjectRef(handle), nil
	}
	handle := vm.Heap.AllocateArray('[', elementClass, counts[0])
	arr := vm.Heap.Array(handle)
	for i := range arr.Elements {
		sub, err := vm.buildMultiArray(elementClass, counts[1:])
		if err != nil {
			return Value{}, err
		}
		arr.Elements[i] = sub
	}
	return ObjectRef(handle), nil
}

func (vm *VM) execCheckcast(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	className, err := classfile.GetClassName(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	ref := frame.Peek()
	if ref.IsNull() {
		return Value{}, false, nil
	}
	ok, err := vm.isInstanceOf(ref, className)
	if err != nil {
		return Value{}, false, err
	}
	if !ok {
		return Value{}, false, vm.NewJavaException("java/lang/ClassCastException", className)
	}
	return Value{}, false, nil
}

func (vm *VM) execInstanceof(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	className, err := classfile.GetClassName(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	ref := frame.Pop()
	if ref.IsNull() {
		frame.Push(IntValue(0))
		return Value{}, false, nil
	}
	ok, err := vm.isInstanceOf(ref, className)
	if err != nil {
		return Value{}, false, err
	}
	frame.Push(BooleanValue(ok))
	return Value{}, false, nil
}

// isInstanceOf walks the superclass/interface chain of ref's runtime class
// looking for className.
func (vm *VM) isInstanceOf(ref Value, className string) (bool, error) {
	handle, ok := HandleOf(ref)
	if !ok {
		return false, nil
	}
	obj := vm.Heap.Object(handle)
	if obj == nil {
		return false, nil // arrays: instanceof against array types is out of scope
	}
	return vm.classIsOrExtends(obj.ClassName, className)
}

func (vm *VM) classIsOrExtends(className, target string) (bool, error) {
	if className == target || target == "java/lang/Object" {
		return true, nil
	}
	cf, err := vm.ClassLoader.LoadClass(className)
	if err != nil {
		return false, err
	}
	for _, iface := range cf.Interfaces {
		ifaceName, err := classfile.GetClassName(cf.ConstantPool, iface)
		if err != nil {
			continue
		}
		if ifaceName == target {
			return true, nil
		}
		if ok, _ := vm.classIsOrExtends(ifaceName, target); ok {
			return true, nil
		}
	}
	super := cf.SuperClassName()
	if super == "" {
		return false, nil
	}
	return vm.classIsOrExtends(super, target)
}
