package vm

import "jvmcore/pkg/classfile"

func (vm *VM) execInvoke(frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpInvokevirtual:
		return vm.execInvokevirtual(frame)
	case OpInvokespecial:
		return vm.execInvokespecial(frame)
	case OpInvokestatic:
		return vm.execInvokestatic(frame)
	case OpInvokeinterface:
		return vm.execInvokeinterface(frame)
	case OpInvokedynamic:
		return vm.execInvokedynamic(frame)
	}
	return Value{}, false, nil
}

// popArgs pops one Value per parameter in the descriptor off the operand
// stack and returns them in call order.
func popArgs(frame *Frame, descriptor string) ([]Value, error) {
	params, _, err := classfile.ParseDescriptor(descriptor)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		args[i] = frame.Pop()
	}
	return args, nil
}

func (vm *VM) execInvokevirtual(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveMethodref(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	args, err := popArgs(frame, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	receiver := frame.Pop()
	if receiver.IsNull() {
		return Value{}, false, vm.NewJavaException("java/lang/NullPointerException", ref.MethodName)
	}
	full := append([]Value{receiver}, args...)

	runtimeClass := vm.runtimeClassName(receiver, ref.ClassName)
	if fn, ok := vm.lookupNative(runtimeClass, ref.MethodName, ref.Descriptor); ok {
		return pushResult(frame, ref.Descriptor)(fn(vm, full))
	}
	cf, method, err := vm.resolveMethod(runtimeClass, ref.MethodName, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	return pushResult(frame, ref.Descriptor)(vm.invoke(cf, method, full))
}

// lookupNative checks the registry under the receiver's runtime class, then
// falls back to java/lang/Object so inherited Object methods (hashCode,
// equals, toString, getClass) resolve even for user classes that never
// override them and have no Object.class on the classpath to walk up to.
func (vm *VM) lookupNative(runtimeClass, methodName, descriptor string) (NativeFunc, bool) {
	if fn, ok := vm.natives.lookup(runtimeClass, methodName, descriptor); ok {
		return fn, true
	}
	return vm.natives.lookup("java/lang/Object", methodName, descriptor)
}

// runtimeClassName returns the receiver's actual class when it is a heap
// object, falling back to the statically resolved class for bridged/native
// receivers that carry no JObject (String, boxed types, ...).
func (vm *VM) runtimeClassName(receiver Value, staticClass string) string {
	handle, ok := HandleOf(receiver)
	if !ok {
		return staticClass
	}
	obj := vm.Heap.Object(handle)
	if obj == nil {
		return staticClass
	}
	return obj.ClassName
}

func (vm *VM) execInvokespecial(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveMethodref(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	args, err := popArgs(frame, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	receiver := frame.Pop()
	full := append([]Value{receiver}, args...)

	if ref.MethodName == "<init>" && ref.ClassName == "java/lang/Object" {
		return Value{}, false, nil // Object's constructor does nothing observable
	}
	if fn, ok := vm.natives.lookup(ref.ClassName, ref.MethodName, ref.Descriptor); ok {
		return pushResult(frame, ref.Descriptor)(fn(vm, full))
	}
	if !receiver.IsNull() {
		if _, ok := HandleOf(receiver); !ok {
			return Value{}, false, nil // bridged receiver with no matching native: treat ctor as no-op
		}
	}
	cf, method, err := vm.resolveMethod(ref.ClassName, ref.MethodName, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	return pushResult(frame, ref.Descriptor)(vm.invoke(cf, method, full))
}

func (vm *VM) execInvokestatic(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	ref, err := classfile.ResolveMethodref(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	args, err := popArgs(frame, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	if fn, ok := vm.natives.lookup(ref.ClassName, ref.MethodName, ref.Descriptor); ok {
		return pushResult(frame, ref.Descriptor)(fn(vm, args))
	}
	if err := vm.ensureInitialized(ref.ClassName); err != nil {
		return Value{}, false, err
	}
	cf, err := vm.ClassLoader.LoadClass(ref.ClassName)
	if err != nil {
		return Value{}, false, err
	}
	method := cf.FindMethod(ref.MethodName, ref.Descriptor)
	if method == nil {
		return Value{}, false, vmRuntimeErrorf("NoSuchMethodError: %s.%s%s", ref.ClassName, ref.MethodName, ref.Descriptor)
	}
	return pushResult(frame, ref.Descriptor)(vm.invoke(cf, method, args))
}

func (vm *VM) execInvokeinterface(frame *Frame) (Value, bool, error) {
	index := frame.ReadU16()
	_ = frame.ReadU8() // count, redundant with descriptor
	_ = frame.ReadU8() // reserved, always 0
	ref, err := classfile.ResolveInterfaceMethodref(frame.Class.ConstantPool, index)
	if err != nil {
		return Value{}, false, err
	}
	args, err := popArgs(frame, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	receiver := frame.Pop()
	if receiver.IsNull() {
		return Value{}, false, vm.NewJavaException("java/lang/NullPointerException", ref.MethodName)
	}
	full := append([]Value{receiver}, args...)
	runtimeClass := vm.runtimeClassName(receiver, ref.ClassName)
	if fn, ok := vm.lookupNative(runtimeClass, ref.MethodName, ref.Descriptor); ok {
		return pushResult(frame, ref.Descriptor)(fn(vm, full))
	}
	cf, method, err := vm.resolveMethod(runtimeClass, ref.MethodName, ref.Descriptor)
	if err != nil {
		return Value{}, false, err
	}
	return pushResult(frame, ref.Descriptor)(vm.invoke(cf, method, full))
}

// pushResult completes an invoke instruction: a non-void callee's return
// value is pushed onto the caller's operand stack, and the caller keeps
// running.
func pushResult(frame *Frame, descriptor string) func(Value, error) (Value, bool, error) {
	return func(v Value, err error) (Value, bool, error) {
		if err == nil && !classfile.IsVoidReturn(descriptor) {
			frame.Push(v)
		}
		return Value{}, false, err
	}
}

// resolveMethod walks className's superclass chain looking for a method
// matching name+descriptor, per JVM spec 5.4.3.3's instance method
// resolution (interfaces are not consulted here beyond what the loader's
// Interfaces list already let isInstanceOf verify).
func (vm *VM) resolveMethod(className, methodName, descriptor string) (*classfile.ClassFile, *classfile.MethodInfo, error) {
	for className != "" {
		cf, err := vm.ClassLoader.LoadClass(className)
		if err != nil {
			return nil, nil, err
		}
		if method := cf.FindMethod(methodName, descriptor); method != nil {
			return cf, method, nil
		}
		className = cf.SuperClassName()
	}
	return nil, nil, vmRuntimeErrorf("NoSuchMethodError: %s%s", methodName, descriptor)
}
