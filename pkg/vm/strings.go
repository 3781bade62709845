package vm

import (
	"fmt"
	"strings"

	"jvmcore/pkg/native"
)

// classObject is the host-side stand-in for a java.lang.Class instance:
// there is no bytecode backing java/lang/Class itself, so getClass() and
// ldc of a Class literal both resolve to one of these rather than a heap
// JObject.
type classObject struct{ Name string }

func (vm *VM) classObjectFor(name string) Value {
	return RefValue(&classObject{Name: name})
}

// internString returns the canonical Value for a Java string constant.
// Real string interning (identity-preserving across ldc of the same
// literal) is left to Go's own string value identity for simplicity: two
// equal Go strings compare == under refsEqual's fallback branch the same
// way interned Java strings would.
func (vm *VM) internString(s string) Value { return RefValue(s) }

// valueToString renders any Value the way Java's String.valueOf/toString
// would, used by invokedynamic string concatenation and Object.toString.
func (vm *VM) valueToString(v Value) string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return fmt.Sprintf("%t", v.Int != 0)
	case TypeByte, TypeShort, TypeInt:
		return fmt.Sprintf("%d", v.Int)
	case TypeChar:
		return string(rune(v.Int))
	case TypeLong:
		return fmt.Sprintf("%d", v.Long)
	case TypeFloat:
		return fmt.Sprintf("%g", v.Flt)
	case TypeDouble:
		return fmt.Sprintf("%g", v.Dbl)
	case TypeReference:
		if v.IsNull() {
			return "null"
		}
		switch ref := v.Ref.(type) {
		case string:
			return ref
		case *native.NativeStringBuilder:
			return ref.String()
		case *native.NativeInteger:
			return fmt.Sprintf("%d", ref.Value)
		case *native.NativeLong:
			return fmt.Sprintf("%d", ref.Value)
		case *native.NativeFloat:
			return fmt.Sprintf("%g", ref.Value)
		case *native.NativeDouble:
			return fmt.Sprintf("%g", ref.Value)
		case *native.NativeBoolean:
			return fmt.Sprintf("%t", ref.Value)
		case *classObject:
			return "class " + ref.Name
		case Handle:
			if obj := vm.Heap.Object(ref); obj != nil {
				return obj.ClassName + "@" + fmt.Sprintf("%x", ref)
			}
			if arr := vm.Heap.Array(ref); arr != nil {
				return fmt.Sprintf("[array len=%d]", len(arr.Elements))
			}
		}
		return fmt.Sprintf("%v", v.Ref)
	}
	return ""
}

// newBridgedInstance constructs the handful of java.lang/java.util types the
// interpreter bridges natively instead of loading a real classfile for, so
// `new StringBuilder()` etc. work without a StringBuilder.class on the
// classpath.
func newBridgedInstance(className string) (Value, bool) {
	switch className {
	case "java/lang/StringBuilder", "java/lang/StringBuffer":
		return RefValue(native.NewNativeStringBuilder()), true
	case "java/util/HashMap":
		return RefValue(native.NewHashMap()), true
	default:
		return Value{}, false
	}
}

func registerStringNatives(r nativeRegistry) {
	str := func(v Value) string { s, _ := v.Ref.(string); return s }

	r["java/lang/String.length:()I"] = func(vm *VM, args []Value) (Value, error) {
		return IntValue(int32(len([]rune(str(args[0]))))), nil
	}
	r["java/lang/String.charAt:(I)C"] = func(vm *VM, args []Value) (Value, error) {
		runes := []rune(str(args[0]))
		idx := args[1].Int
		if idx < 0 || int(idx) >= len(runes) {
			return Value{}, vm.NewJavaException("java/lang/StringIndexOutOfBoundsException", "")
		}
		return CharValue(uint16(runes[idx])), nil
	}
	r["java/lang/String.equals:(Ljava/lang/Object;)Z"] = func(vm *VM, args []Value) (Value, error) {
		other, ok := args[1].Ref.(string)
		return BooleanValue(ok && other == str(args[0])), nil
	}
	r["java/lang/String.concat:(Ljava/lang/String;)Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		return RefValue(str(args[0]) + str(args[1])), nil
	}
	r["java/lang/String.substring:(I)Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		runes := []rune(str(args[0]))
		start := int(args[1].Int)
		if start < 0 || start > len(runes) {
			return Value{}, vm.NewJavaException("java/lang/StringIndexOutOfBoundsException", "")
		}
		return RefValue(string(runes[start:])), nil
	}
	r["java/lang/String.substring:(II)Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		runes := []rune(str(args[0]))
		start, end := int(args[1].Int), int(args[2].Int)
		if start < 0 || end > len(runes) || start > end {
			return Value{}, vm.NewJavaException("java/lang/StringIndexOutOfBoundsException", "")
		}
		return RefValue(string(runes[start:end])), nil
	}
	r["java/lang/String.toUpperCase:()Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		return RefValue(strings.ToUpper(str(args[0]))), nil
	}
	r["java/lang/String.toLowerCase:()Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		return RefValue(strings.ToLower(str(args[0]))), nil
	}
	r["java/lang/String.isEmpty:()Z"] = func(vm *VM, args []Value) (Value, error) {
		return BooleanValue(str(args[0]) == ""), nil
	}
	r["java/lang/String.hashCode:()I"] = func(vm *VM, args []Value) (Value, error) {
		var h int32
		for _, c := range str(args[0]) {
			h = h*31 + int32(c)
		}
		return IntValue(h), nil
	}
	r["java/lang/String.valueOf:(I)Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		return RefValue(fmt.Sprintf("%d", args[0].Int)), nil
	}
	r["java/lang/String.valueOf:(J)Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		return RefValue(fmt.Sprintf("%d", args[0].Long)), nil
	}
	r["java/lang/String.valueOf:(Ljava/lang/Object;)Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		return RefValue(vm.valueToString(args[0])), nil
	}
}

func registerStringBuilderNatives(r nativeRegistry) {
	sb := func(v Value) *native.NativeStringBuilder {
		b, _ := v.Ref.(*native.NativeStringBuilder)
		return b
	}

	appendFn := func(vm *VM, args []Value) (Value, error) {
		b := sb(args[0])
		b.Append(vm.valueToString(args[1]))
		return args[0], nil
	}

	for _, desc := range []string{
		"(Ljava/lang/String;)Ljava/lang/StringBuilder;",
		"(I)Ljava/lang/StringBuilder;",
		"(J)Ljava/lang/StringBuilder;",
		"(C)Ljava/lang/StringBuilder;",
		"(Z)Ljava/lang/StringBuilder;",
		"(Ljava/lang/Object;)Ljava/lang/StringBuilder;",
		"(D)Ljava/lang/StringBuilder;",
		"(F)Ljava/lang/StringBuilder;",
	} {
		r["java/lang/StringBuilder.append:"+desc] = appendFn
	}

	r["java/lang/StringBuilder.toString:()Ljava/lang/String;"] = func(vm *VM, args []Value) (Value, error) {
		return RefValue(sb(args[0]).String()), nil
	}
	r["java/lang/StringBuilder.length:()I"] = func(vm *VM, args []Value) (Value, error) {
		return IntValue(sb(args[0]).Length()), nil
	}
	r["java/lang/StringBuilder.<init>:()V"] = noop
	r["java/lang/StringBuilder.<init>:(Ljava/lang/String;)V"] = func(vm *VM, args []Value) (Value, error) {
		sb(args[0]).Append(vm.valueToString(args[1]))
		return Value{}, nil
	}
}
