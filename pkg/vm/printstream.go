package vm

import "jvmcore/pkg/native"

// registerPrintStreamNatives wires java.io.PrintStream.print/println for
// every primitive and Object overload javac can emit, all funneling through
// valueToString so formatting stays consistent with string concatenation.
func registerPrintStreamNatives(r nativeRegistry) {
	ps := func(v Value) *native.PrintStream {
		p, _ := v.Ref.(*native.PrintStream)
		return p
	}

	for _, desc := range []string{
		"(I)V", "(J)V", "(D)V", "(F)V", "(Z)V", "(C)V",
		"(Ljava/lang/String;)V", "(Ljava/lang/Object;)V",
	} {
		r["java/io/PrintStream.println:"+desc] = func(vm *VM, args []Value) (Value, error) {
			ps(args[0]).Println(vm.valueToString(args[1]))
			return Value{}, nil
		}
		r["java/io/PrintStream.print:"+desc] = func(vm *VM, args []Value) (Value, error) {
			ps(args[0]).Print(vm.valueToString(args[1]))
			return Value{}, nil
		}
	}
	r["java/io/PrintStream.println:()V"] = func(vm *VM, args []Value) (Value, error) {
		ps(args[0]).Println()
		return Value{}, nil
	}
}
