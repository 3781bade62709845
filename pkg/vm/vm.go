package vm

import (
	"fmt"
	"io"
	"os"

	"jvmcore/pkg/classfile"
	"jvmcore/pkg/native"
)

// VM is the virtual machine that executes Java bytecode: one ClassLoader,
// one Heap, one explicit CallStack of activation records, and the native
// method bridge table.
type VM struct {
	ClassLoader ClassLoader
	Stdout      io.Writer
	Heap        *Heap
	CallStack   *CallStack
	natives     nativeRegistry

	staticFields        map[string]map[string]Value // className -> fieldName -> Value
	initializedClasses  map[string]bool             // <clinit> run or in progress
}

// NewVM creates a VM backed by the given class loader, writing program
// output to os.Stdout.
func NewVM(cl ClassLoader) *VM {
	return &VM{
		ClassLoader:         cl,
		Stdout:              os.Stdout,
		Heap:                NewHeap(),
		CallStack:           NewCallStack(),
		natives:             newNativeRegistry(),
		staticFields:        make(map[string]map[string]Value),
		initializedClasses:  make(map[string]bool),
	}
}

// Execute finds and runs mainClassName's public static void main(String[]).
func (vm *VM) Execute(mainClassName string) error {
	cf, err := vm.ClassLoader.LoadClass(mainClassName)
	if err != nil {
		return err
	}
	method := cf.FindMethod("main", "([Ljava/lang/String;)V")
	if method == nil {
		return vmRuntimeErrorf("main method not found in %s", mainClassName)
	}
	if err := vm.ensureInitialized(mainClassName); err != nil {
		return err
	}
	_, err = vm.invoke(cf, method, []Value{NullValue()})
	if exit, ok := err.(*JavaException); ok && exit.ClassName == "java/lang/VirtualMachineExit" {
		return nil
	}
	return err
}

// invoke is the VM's sole method-invocation entry point: it pushes a Frame
// onto the CallStack, runs the bytecode interpreter loop against it, and
// pops the frame on return or unhandled exception. Native and abstract
// methods never get a Frame.
func (vm *VM) invoke(cf *classfile.ClassFile, method *classfile.MethodInfo, args []Value) (Value, error) {
	if method.IsNative() {
		className, _ := cf.ClassName()
		fn, ok := vm.natives.lookup(className, method.Name, method.Descriptor)
		if !ok {
			return Value{}, vmRuntimeErrorf("UnsatisfiedLinkError: %s.%s%s", className, method.Name, method.Descriptor)
		}
		return fn(vm, args)
	}
	if method.IsAbstract() {
		className, _ := cf.ClassName()
		return Value{}, vmRuntimeErrorf("AbstractMethodError: %s.%s%s", className, method.Name, method.Descriptor)
	}
	if method.Code == nil {
		return Value{}, vmRuntimeErrorf("method %s has no Code attribute", method.Name)
	}

	frame := NewFrame(method, cf)
	frame.SetArgs(args)
	if err := vm.CallStack.Push(frame); err != nil {
		return Value{}, err
	}
	defer vm.CallStack.Pop()

	className, _ := cf.ClassName()
	for frame.PC < len(frame.Code) {
		frame.LastPC = frame.PC
		opcode := frame.Code[frame.PC]
		frame.PC++

		retVal, done, err := vm.executeInstruction(frame, opcode)
		if err != nil {
			javaExc, isJavaExc := err.(*JavaException)
			if !isJavaExc {
				return Value{}, fmt.Errorf("in %s.%s%s at PC=%d: %w", className, method.Name, method.Descriptor, frame.LastPC, err)
			}
			handler := vm.findExceptionHandler(cf, method.Code, frame.LastPC, javaExc)
			if handler == nil {
				return Value{}, javaExc
			}
			frame.SP = 0
			frame.Push(javaExc.Ref)
			frame.PC = int(handler.HandlerPC)
			continue
		}
		if done {
			return retVal, nil
		}
	}
	return Value{}, nil // fell off the end: implicit return for void methods
}

// ensureInitialized runs className's <clinit>, modeled as an ordinary
// invoke() call (an implicit frame pushed onto the same CallStack any other
// method uses) rather than a side channel, so clinit failures unwind through
// the normal exception path.
func (vm *VM) ensureInitialized(className string) error {
	if vm.initializedClasses[className] {
		return nil
	}
	vm.initializedClasses[className] = true // set before recursing, <clinit> never re-enters

	cf, err := vm.ClassLoader.LoadClass(className)
	if err != nil {
		return nil // unresolvable class: let the caller's own lookup surface the real error
	}

	if super := cf.SuperClassName(); super != "" {
		if err := vm.ensureInitialized(super); err != nil {
			return err
		}
	}

	clinit := cf.FindMethod("<clinit>", "()V")
	if clinit == nil {
		return nil
	}
	_, err = vm.invoke(cf, clinit, nil)
	return err
}

// getStaticField returns a static field's value, special-casing
// java.lang.System.out/err since there is no System.class on the classpath
// to back them with a real <clinit>-initialized field.
func (vm *VM) getStaticField(className, fieldName string) Value {
	if className == "java/lang/System" && (fieldName == "out" || fieldName == "err") {
		w := vm.Stdout
		if fieldName == "err" && w == os.Stdout {
			w = os.Stderr
		}
		return RefValue(&native.PrintStream{Writer: w})
	}
	if fields, ok := vm.staticFields[className]; ok {
		if val, ok := fields[fieldName]; ok {
			return val
		}
	}
	return Value{}
}

func (vm *VM) getStaticFieldOk(className, fieldName string) (Value, bool) {
	if fields, ok := vm.staticFields[className]; ok {
		val, ok := fields[fieldName]
		return val, ok
	}
	return Value{}, false
}

func (vm *VM) setStaticField(className, fieldName string, val Value) {
	if _, ok := vm.staticFields[className]; !ok {
		vm.staticFields[className] = make(map[string]Value)
	}
	vm.staticFields[className][fieldName] = val
}

// findExceptionHandler searches a method's exception table for a handler
// covering pc whose catch type matches exc's runtime class.
func (vm *VM) findExceptionHandler(cf *classfile.ClassFile, code *classfile.CodeAttribute, pc int, exc *JavaException) *classfile.ExceptionHandler {
	for i := range code.ExceptionHandlers {
		h := &code.ExceptionHandlers[i]
		if pc < int(h.StartPC) || pc >= int(h.EndPC) {
			continue
		}
		if h.CatchType == 0 {
			return h // catch-all, e.g. compiled finally block
		}
		catchClassName, err := classfile.GetClassName(cf.ConstantPool, h.CatchType)
		if err != nil {
			continue
		}
		if ok, _ := vm.classIsOrExtends(exc.ClassName, catchClassName); ok {
			return h
		}
	}
	return nil
}
