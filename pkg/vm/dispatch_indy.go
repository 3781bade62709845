package vm

import "jvmcore/pkg/classfile"

// MethodHandle reference kinds (JVM spec table 5.4.3.5-A). Only the ones
// LambdaMetafactory actually produces are named.
const (
	refInvokeStatic    = 6
	refInvokeSpecial   = 7
	refNewInvokeSpecial = 8
	refInvokeVirtual   = 5
	refInvokeInterface = 9
)

// nativeLambda is the runtime representation of a value produced by
// invokedynamic + LambdaMetafactory: a captured method reference plus
// whatever free variables the lambda closed over, standing in for the
// anonymous class the JVM itself would normally synthesize.
type nativeLambda struct {
	implClass      string
	implName       string
	implDescriptor string
	kind           uint8
	captured       []Value
}

func (l *nativeLambda) invoke(vm *VM, args []Value) (Value, error) {
	full := append(append([]Value(nil), l.captured...), args...)
	switch l.kind {
	case refInvokeStatic:
		if fn, ok := vm.natives.lookup(l.implClass, l.implName, l.implDescriptor); ok {
			return fn(vm, full)
		}
		cf, method, err := vm.resolveMethod(l.implClass, l.implName, l.implDescriptor)
		if err != nil {
			return Value{}, err
		}
		return vm.invoke(cf, method, full)
	case refNewInvokeSpecial:
		handle := vm.Heap.AllocateObject(l.implClass)
		receiver := ObjectRef(handle)
		ctorArgs := append([]Value{receiver}, full...)
		if err := vm.ensureInitialized(l.implClass); err != nil {
			return Value{}, err
		}
		cf, method, err := vm.resolveMethod(l.implClass, "<init>", l.implDescriptor)
		if err == nil {
			if _, err := vm.invoke(cf, method, ctorArgs); err != nil {
				return Value{}, err
			}
		}
		return receiver, nil
	default: // invokevirtual, invokespecial, invokeinterface: full[0] is the receiver
		if len(full) == 0 {
			return Value{}, vmRuntimeErrorf("lambda %s.%s: missing receiver", l.implClass, l.implName)
		}
		receiver := full[0]
		rest := full[1:]
		runtimeClass := vm.runtimeClassName(receiver, l.implClass)
		if fn, ok := vm.natives.lookup(runtimeClass, l.implName, l.implDescriptor); ok {
			return fn(vm, full)
		}
		cf, method, err := vm.resolveMethod(runtimeClass, l.implName, l.implDescriptor)
		if err != nil {
			return Value{}, err
		}
		_ = rest
		return vm.invoke(cf, method, full)
	}
}

func (vm *VM) execInvokedynamic(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	_ = frame.ReadU8()
	_ = frame.ReadU8()

	pool := frame.Class.ConstantPool
	entry, ok := pool[index].(*classfile.ConstantInvokeDynamic)
	if !ok {
		return Value{}, false, vmRuntimeErrorf("invokedynamic: constant pool index %d is not InvokeDynamic", index)
	}
	if int(entry.BootstrapMethodAttrIndex) >= len(frame.Class.BootstrapMethods) {
		return Value{}, false, vmRuntimeErrorf("invokedynamic: bootstrap method index %d out of range", entry.BootstrapMethodAttrIndex)
	}
	bsm := frame.Class.BootstrapMethods[entry.BootstrapMethodAttrIndex]

	invokedName, invokedDescriptor, err := nameAndTypeOf(pool, entry.NameAndTypeIndex)
	if err != nil {
		return Value{}, false, err
	}

	bsmMethodHandle, ok := pool[bsm.MethodRef].(*classfile.ConstantMethodHandle)
	if !ok {
		return Value{}, false, vmRuntimeErrorf("invokedynamic: bootstrap method ref is not a MethodHandle")
	}
	bsmRef, err := classfile.ResolveMethodref(pool, bsmMethodHandle.ReferenceIndex)
	if err != nil {
		return Value{}, false, err
	}

	switch {
	case bsmRef.ClassName == "java/lang/invoke/StringConcatFactory":
		return vm.invokeStringConcat(frame, invokedDescriptor)
	case bsmRef.ClassName == "java/lang/invoke/LambdaMetafactory":
		return vm.invokeLambdaMetafactory(frame, pool, bsm, invokedName, invokedDescriptor)
	default:
		return Value{}, false, vmRuntimeErrorf("invokedynamic: unsupported bootstrap method %s", bsmRef.ClassName)
	}
}

func nameAndTypeOf(pool []classfile.ConstantPoolEntry, index uint16) (name, descriptor string, err error) {
	nat, ok := pool[index].(*classfile.ConstantNameAndType)
	if !ok {
		return "", "", vmRuntimeErrorf("constant pool index %d is not NameAndType", index)
	}
	name, err = classfile.GetUtf8(pool, nat.NameIndex)
	if err != nil {
		return "", "", err
	}
	descriptor, err = classfile.GetUtf8(pool, nat.DescriptorIndex)
	if err != nil {
		return "", "", err
	}
	return name, descriptor, nil
}

// invokeStringConcat implements the common case javac emits for "a" + b:
// concatenate every argument (rendered the way Object.toString/String.valueOf
// would) in call order and push the resulting string.
func (vm *VM) invokeStringConcat(frame *Frame, invokedDescriptor string) (Value, bool, error) {
	args, err := popArgs(frame, invokedDescriptor)
	if err != nil {
		return Value{}, false, err
	}
	var sb []byte
	for _, a := range args {
		sb = append(sb, vm.valueToString(a)...)
	}
	frame.Push(RefValue(string(sb)))
	return Value{}, false, nil
}

// invokeLambdaMetafactory implements the common case of a functional
// interface implemented by a lambda or method reference: it builds a
// nativeLambda capturing whatever free variables are on the stack (the
// captured receiver/arguments of the reference) and pushes it as the
// functional interface instance.
func (vm *VM) invokeLambdaMetafactory(frame *Frame, pool []classfile.ConstantPoolEntry, bsm classfile.BootstrapMethod, invokedName, invokedDescriptor string) (Value, bool, error) {
	if len(bsm.BootstrapArguments) < 2 {
		return Value{}, false, vmRuntimeErrorf("invokedynamic: LambdaMetafactory bootstrap missing implementation method handle")
	}
	implHandleIdx := bsm.BootstrapArguments[1]
	implHandle, ok := pool[implHandleIdx].(*classfile.ConstantMethodHandle)
	if !ok {
		return Value{}, false, vmRuntimeErrorf("invokedynamic: LambdaMetafactory implementation argument is not a MethodHandle")
	}
	implRef, err := classfile.ResolveMethodref(pool, implHandle.ReferenceIndex)
	if err != nil {
		return Value{}, false, err
	}

	captured, err := popArgs(frame, invokedDescriptor)
	if err != nil {
		return Value{}, false, err
	}

	lambda := &nativeLambda{
		implClass:      implRef.ClassName,
		implName:       implRef.MethodName,
		implDescriptor: implRef.Descriptor,
		kind:           implHandle.ReferenceKind,
		captured:       captured,
	}
	frame.Push(RefValue(lambda))
	_ = invokedName
	return Value{}, false, nil
}
