package vm

import "jvmcore/pkg/classfile"

// execControl handles unconditional/conditional branches, the switch
// instructions, jsr/ret, and the return family.
func (vm *VM) execControl(frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpIfeq:
		return vm.branchUnary(frame, func(v int32) bool { return v == 0 })
	case OpIfne:
		return vm.branchUnary(frame, func(v int32) bool { return v != 0 })
	case OpIflt:
		return vm.branchUnary(frame, func(v int32) bool { return v < 0 })
	case OpIfge:
		return vm.branchUnary(frame, func(v int32) bool { return v >= 0 })
	case OpIfgt:
		return vm.branchUnary(frame, func(v int32) bool { return v > 0 })
	case OpIfle:
		return vm.branchUnary(frame, func(v int32) bool { return v <= 0 })

	case OpIfIcmpeq:
		return vm.branchBinary(frame, func(a, b int32) bool { return a == b })
	case OpIfIcmpne:
		return vm.branchBinary(frame, func(a, b int32) bool { return a != b })
	case OpIfIcmplt:
		return vm.branchBinary(frame, func(a, b int32) bool { return a < b })
	case OpIfIcmpge:
		return vm.branchBinary(frame, func(a, b int32) bool { return a >= b })
	case OpIfIcmpgt:
		return vm.branchBinary(frame, func(a, b int32) bool { return a > b })
	case OpIfIcmple:
		return vm.branchBinary(frame, func(a, b int32) bool { return a <= b })

	case OpIfAcmpeq:
		return vm.branchRef(frame, func(eq bool) bool { return eq })
	case OpIfAcmpne:
		return vm.branchRef(frame, func(eq bool) bool { return !eq })

	case OpGoto:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		frame.PC = branchPC + int(offset)

	case OpGotoW:
		branchPC := frame.PC - 1
		offset := frame.ReadI32()
		frame.PC = branchPC + int(offset)

	case OpJsr:
		branchPC := frame.PC - 1
		offset := frame.ReadI16()
		frame.Push(ReturnAddressValue(frame.PC))
		frame.PC = branchPC + int(offset)

	case OpJsrW:
		branchPC := frame.PC - 1
		offset := frame.ReadI32()
		frame.Push(ReturnAddressValue(frame.PC))
		frame.PC = branchPC + int(offset)

	case OpRet:
		index := frame.ReadU8()
		frame.PC = int(frame.GetLocal(int(index)).Int)

	case OpTableswitch:
		return vm.execTableswitch(frame)

	case OpLookupswitch:
		return vm.execLookupswitch(frame)

	case OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn:
		return frame.Pop(), true, nil

	case OpReturn:
		return Value{}, true, nil
	}
	return Value{}, false, nil
}

func (vm *VM) branchUnary(frame *Frame, cond func(int32) bool) (Value, bool, error) {
	branchPC := frame.PC - 1
	offset := frame.ReadI16()
	v := frame.Pop()
	if cond(v.Int) {
		frame.PC = branchPC + int(offset)
	}
	return Value{}, false, nil
}

func (vm *VM) branchBinary(frame *Frame, cond func(int32, int32) bool) (Value, bool, error) {
	branchPC := frame.PC - 1
	offset := frame.ReadI16()
	v2, v1 := frame.Pop(), frame.Pop()
	if cond(v1.Int, v2.Int) {
		frame.PC = branchPC + int(offset)
	}
	return Value{}, false, nil
}

func (vm *VM) branchRef(frame *Frame, cond func(bool) bool) (Value, bool, error) {
	branchPC := frame.PC - 1
	offset := frame.ReadI16()
	v2, v1 := frame.Pop(), frame.Pop()
	if cond(refsEqual(v1, v2)) {
		frame.PC = branchPC + int(offset)
	}
	return Value{}, false, nil
}

func refsEqual(a, b Value) bool {
	if a.IsNull() && b.IsNull() {
		return true
	}
	if a.IsNull() != b.IsNull() {
		return false
	}
	ha, oka := HandleOf(a)
	hb, okb := HandleOf(b)
	if oka && okb {
		return ha == hb
	}
	return a.Ref == b.Ref
}

func (vm *VM) execTableswitch(frame *Frame) (Value, bool, error) {
	branchPC := frame.PC - 1
	ops, err := classfile.DecodeTableSwitch(frame.Code, branchPC)
	if err != nil {
		return Value{}, false, vmRuntimeErrorf("tableswitch: %v", err)
	}
	key := frame.Pop().Int
	var offset int32
	if key < ops.Low || key > ops.High {
		offset = ops.Default
	} else {
		offset = ops.Offsets[key-ops.Low]
	}
	frame.PC = branchPC + int(offset)
	return Value{}, false, nil
}

func (vm *VM) execLookupswitch(frame *Frame) (Value, bool, error) {
	branchPC := frame.PC - 1
	ops, err := classfile.DecodeLookupSwitch(frame.Code, branchPC)
	if err != nil {
		return Value{}, false, vmRuntimeErrorf("lookupswitch: %v", err)
	}
	key := frame.Pop().Int
	offset, ok := ops.Pairs[key]
	if !ok {
		offset = ops.Default
	}
	frame.PC = branchPC + int(offset)
	return Value{}, false, nil
}
