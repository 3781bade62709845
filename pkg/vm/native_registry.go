package vm

import (
	"fmt"
	"math"
	"reflect"

	"jvmcore/pkg/native"
)

// NativeFunc is a host implementation of one native Java method. It lives in
// the vm package (rather than pkg/native) so it can operate on Value and
// *VM directly; pkg/native only supplies the plain-data types (PrintStream,
// NativeInteger, ...) these functions manipulate.
type NativeFunc func(vm *VM, args []Value) (Value, error)

// nativeRegistry maps "Class/Name.method:descriptor" to its implementation.
// This is the pluggable bridge table a real JVM's JNI layer would be:
// bytecode never sees the difference between a native and a Java method.
// The invoke opcodes consult this table before resolving a class file, and
// invoke() routes here for any method with AccNative set.
type nativeRegistry map[string]NativeFunc

func newNativeRegistry() nativeRegistry {
	r := make(nativeRegistry)
	registerObjectNatives(r)
	registerSystemNatives(r)
	registerMathNatives(r)
	registerBoxingNatives(r)
	registerStringNatives(r)
	registerStringBuilderNatives(r)
	registerClassNatives(r)
	registerThrowableNatives(r)
	registerHashMapNatives(r)
	registerPrintStreamNatives(r)
	return r
}

func (r nativeRegistry) lookup(className, methodName, descriptor string) (NativeFunc, bool) {
	fn, ok := r[className+"."+methodName+":"+descriptor]
	return fn, ok
}

func registerObjectNatives(r nativeRegistry) {
	r["java/lang/Object.hashCode:()I"] = func(vm *VM, args []Value) (Value, error) {
		handle, ok := HandleOf(args[0])
		if !ok {
			return IntValue(int32(reflect.ValueOf(args[0].Ref).Pointer() & 0x7FFFFFFF)), nil
		}
		return IntValue(int32(handle & 0x7FFFFFFF)), nil
	}
	r["java/lang/Object.getClass:()Ljava/lang/Class;"] = func(vm *VM, args []Value) (Value, error) {
		handle, ok := HandleOf(args[0])
		if !ok {
			return vm.classObjectFor(fmt.Sprintf("%T", args[0].Ref)), nil
		}
		obj := vm.Heap.Object(handle)
		if obj == nil {
			return NullValue(), nil
		}
		return vm.classObjectFor(obj.ClassName), nil
	}
	r["java/lang/Object.registerNatives:()V"] = noop
	r["java/lang/Object.equals:(Ljava/lang/Object;)Z"] = func(vm *VM, args []Value) (Value, error) {
		return BooleanValue(refsEqual(args[0], args[1])), nil
	}
	r["java/lang/Object.toString:()Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		return RefValue(vm.valueToString(args[0])), nil
	}
}

func registerSystemNatives(r nativeRegistry) {
	r["java/lang/System.registerNatives:()V"] = noop
	r["java/lang/Class.registerNatives:()V"] = noop
	r["java/lang/System.initProperties:(Ljava/util/Properties;)Ljava/util/Properties;"] = func(vm *VM, args []Value) (Value, error) {
		return args[0], nil
	}
	r["java/lang/System.currentTimeMillis:()J"] = func(vm *VM, args []Value) (Value, error) {
		return LongValue(0), nil // deterministic: no wall-clock dependency in a reproducible interpreter
	}
	r["java/lang/System.nanoTime:()J"] = func(vm *VM, args []Value) (Value, error) {
		return LongValue(0), nil
	}
	r["java/lang/System.exit:(I)V"] = func(vm *VM, args []Value) (Value, error) {
		return Value{}, vm.NewJavaException("java/lang/VirtualMachineExit", fmt.Sprintf("%d", args[0].Int))
	}
	r["java/lang/System.arraycopy:(Ljava/lang/Object;ILjava/lang/Object;II)V"] = func(vm *VM, args []Value) (Value, error) {
		return Value{}, vm.arraycopy(args)
	}
}

func (vm *VM) arraycopy(args []Value) error {
	src, err := vm.resolveArray(args[0])
	if err != nil {
		return err
	}
	srcPos := args[1].Int
	dst, err := vm.resolveArray(args[2])
	if err != nil {
		return err
	}
	dstPos := args[3].Int
	length := args[4].Int
	if srcPos < 0 || dstPos < 0 || length < 0 ||
		int(srcPos+length) > len(src.Elements) || int(dstPos+length) > len(dst.Elements) {
		return vm.NewJavaException("java/lang/ArrayIndexOutOfBoundsException", "")
	}
	copy(dst.Elements[dstPos:dstPos+length], src.Elements[srcPos:srcPos+length])
	return nil
}

func registerMathNatives(r nativeRegistry) {
	r["java/lang/Math.sqrt:(D)D"] = func(vm *VM, args []Value) (Value, error) { return DoubleValue(math.Sqrt(args[0].Dbl)), nil }
	r["java/lang/Math.pow:(DD)D"] = func(vm *VM, args []Value) (Value, error) {
		return DoubleValue(math.Pow(args[0].Dbl, args[1].Dbl)), nil
	}
	r["java/lang/Math.abs:(I)I"] = func(vm *VM, args []Value) (Value, error) {
		v := args[0].Int
		if v < 0 {
			v = -v
		}
		return IntValue(v), nil
	}
	r["java/lang/Math.max:(II)I"] = func(vm *VM, args []Value) (Value, error) {
		if args[0].Int > args[1].Int {
			return IntValue(args[0].Int), nil
		}
		return IntValue(args[1].Int), nil
	}
	r["java/lang/Math.min:(II)I"] = func(vm *VM, args []Value) (Value, error) {
		if args[0].Int < args[1].Int {
			return IntValue(args[0].Int), nil
		}
		return IntValue(args[1].Int), nil
	}
}

func registerBoxingNatives(r nativeRegistry) {
	r["java/lang/Integer.valueOf:(I)Ljava/lang/Integer;"] = func(vm *VM, args []Value) (Value, error) {
		return RefValue(native.IntegerValueOf(args[0].Int)), nil
	}
	r["java/lang/Integer.intValue:()I"] = func(vm *VM, args []Value) (Value, error) {
		ni, _ := args[0].Ref.(*native.NativeInteger)
		if ni == nil {
			return IntValue(0), nil
		}
		return IntValue(native.IntegerIntValue(ni)), nil
	}
	r["java/lang/Integer.parseInt:(Ljava/lang/String;)I"] = func(vm *VM, args []Value) (Value, error) {
		s, _ := args[0].Ref.(string)
		var v int32
		_, err := fmt.Sscanf(s, "%d", &v)
		if err != nil {
			return Value{}, vm.NewJavaException("java/lang/NumberFormatException", s)
		}
		return IntValue(v), nil
	}
	r["java/lang/Integer.toString:(I)Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		return RefValue(fmt.Sprintf("%d", args[0].Int)), nil
	}
	r["java/lang/Float.floatToRawIntBits:(F)I"] = func(vm *VM, args []Value) (Value, error) {
		return IntValue(int32(math.Float32bits(args[0].Flt))), nil
	}
	r["java/lang/Double.doubleToRawLongBits:(D)J"] = func(vm *VM, args []Value) (Value, error) {
		return LongValue(int64(math.Float64bits(args[0].Dbl))), nil
	}
	r["java/lang/Double.longBitsToDouble:(J)D"] = func(vm *VM, args []Value) (Value, error) {
		return DoubleValue(math.Float64frombits(uint64(args[0].Long))), nil
	}
}

func registerClassNatives(r nativeRegistry) {
	r["java/lang/Class.desiredAssertionStatus0:(Ljava/lang/Class;)Z"] = func(vm *VM, args []Value) (Value, error) {
		return IntValue(0), nil
	}
	r["java/lang/Class.getPrimitiveClass:(Ljava/lang/String;)Ljava/lang/Class;"] = func(vm *VM, args []Value) (Value, error) {
		return NullValue(), nil
	}
}

func registerThrowableNatives(r nativeRegistry) {
	r["java/lang/Throwable.fillInStackTrace:(I)Ljava/lang/Throwable;"] = func(vm *VM, args []Value) (Value, error) {
		return NullValue(), nil // no native stack trace to capture
	}
}

func registerHashMapNatives(r nativeRegistry) {
	hm := func(v Value) *native.NativeHashMap {
		h, _ := v.Ref.(*native.NativeHashMap)
		return h
	}
	refOrNull := func(v interface{}) Value {
		if v == nil {
			return NullValue()
		}
		return RefValue(v)
	}

	r["java/util/HashMap.<init>:()V"] = noop
	r["java/util/HashMap.put:(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;"] = func(vm *VM, args []Value) (Value, error) {
		return refOrNull(hm(args[0]).Put(args[1].Ref, args[2].Ref)), nil
	}
	r["java/util/HashMap.get:(Ljava/lang/Object;)Ljava/lang/Object;"] = func(vm *VM, args []Value) (Value, error) {
		return refOrNull(hm(args[0]).Get(args[1].Ref)), nil
	}
}

func noop(vm *VM, args []Value) (Value, error) { return Value{}, nil }
