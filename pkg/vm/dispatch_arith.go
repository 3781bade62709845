package vm

import "math"

// execStack handles pop/pop2/dup family/swap. Category-2 values (long,
// double) occupy a single Value here despite being "two slots" in the spec,
// so dup2 variants duplicate a matching pair of category-1 values or a
// single category-2 value, exactly as the spec distinguishes.
func (vm *VM) execStack(frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpPop:
		frame.Pop()
	case OpPop2:
		v := frame.Pop()
		if v.Category() == 1 {
			frame.Pop()
		}
	case OpDup:
		v := frame.Pop()
		frame.Push(v)
		frame.Push(v)
	case OpDupX1:
		v1 := frame.Pop()
		v2 := frame.Pop()
		frame.Push(v1)
		frame.Push(v2)
		frame.Push(v1)
	case OpDupX2:
		v1 := frame.Pop()
		v2 := frame.Pop()
		if v2.Category() == 2 {
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
		} else {
			v3 := frame.Pop()
			frame.Push(v1)
			frame.Push(v3)
			frame.Push(v2)
			frame.Push(v1)
		}
	case OpDup2:
		v1 := frame.Pop()
		if v1.Category() == 2 {
			frame.Push(v1)
			frame.Push(v1)
		} else {
			v2 := frame.Pop()
			frame.Push(v2)
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
		}
	case OpDup2X1:
		v1 := frame.Pop()
		if v1.Category() == 2 {
			v2 := frame.Pop()
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
		} else {
			v2 := frame.Pop()
			v3 := frame.Pop()
			frame.Push(v2)
			frame.Push(v1)
			frame.Push(v3)
			frame.Push(v2)
			frame.Push(v1)
		}
	case OpDup2X2:
		v1 := frame.Pop()
		v2 := frame.Pop()
		if v1.Category() == 2 && v2.Category() == 2 {
			frame.Push(v1)
			frame.Push(v2)
			frame.Push(v1)
		} else if v1.Category() == 1 && v2.Category() == 1 {
			v3 := frame.Pop()
			if v3.Category() == 2 {
				frame.Push(v2)
				frame.Push(v1)
				frame.Push(v3)
				frame.Push(v2)
				frame.Push(v1)
			} else {
				v4 := frame.Pop()
				frame.Push(v2)
				frame.Push(v1)
				frame.Push(v4)
				frame.Push(v3)
				frame.Push(v2)
				frame.Push(v1)
			}
		} else {
			// v1 category 2, v2 category 1: form3
			v3 := frame.Pop()
			frame.Push(v1)
			frame.Push(v3)
			frame.Push(v2)
			frame.Push(v1)
		}
	case OpSwap:
		v2 := frame.Pop()
		v1 := frame.Pop()
		frame.Push(v2)
		frame.Push(v1)
	}
	return Value{}, false, nil
}

// execArith handles the integer/long/float/double arithmetic and bitwise
// families plus iinc.
func (vm *VM) execArith(frame *Frame, opcode byte) (Value, bool, error) {
	switch opcode {
	case OpIadd:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(v1.Int + v2.Int))
	case OpLadd:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(LongValue(v1.Long + v2.Long))
	case OpFadd:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(FloatValue(v1.Flt + v2.Flt))
	case OpDadd:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(DoubleValue(v1.Dbl + v2.Dbl))

	case OpIsub:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(v1.Int - v2.Int))
	case OpLsub:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(LongValue(v1.Long - v2.Long))
	case OpFsub:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(FloatValue(v1.Flt - v2.Flt))
	case OpDsub:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(DoubleValue(v1.Dbl - v2.Dbl))

	case OpImul:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(v1.Int * v2.Int))
	case OpLmul:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(LongValue(v1.Long * v2.Long))
	case OpFmul:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(FloatValue(v1.Flt * v2.Flt))
	case OpDmul:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(DoubleValue(v1.Dbl * v2.Dbl))

	case OpIdiv:
		v2, v1 := frame.Pop(), frame.Pop()
		if v2.Int == 0 {
			return Value{}, false, vm.NewJavaException("java/lang/ArithmeticException", "/ by zero")
		}
		frame.Push(IntValue(v1.Int / v2.Int))
	case OpLdiv:
		v2, v1 := frame.Pop(), frame.Pop()
		if v2.Long == 0 {
			return Value{}, false, vm.NewJavaException("java/lang/ArithmeticException", "/ by zero")
		}
		frame.Push(LongValue(v1.Long / v2.Long))
	case OpFdiv:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(FloatValue(v1.Flt / v2.Flt))
	case OpDdiv:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(DoubleValue(v1.Dbl / v2.Dbl))

	case OpIrem:
		v2, v1 := frame.Pop(), frame.Pop()
		if v2.Int == 0 {
			return Value{}, false, vm.NewJavaException("java/lang/ArithmeticException", "/ by zero")
		}
		frame.Push(IntValue(v1.Int % v2.Int))
	case OpLrem:
		v2, v1 := frame.Pop(), frame.Pop()
		if v2.Long == 0 {
			return Value{}, false, vm.NewJavaException("java/lang/ArithmeticException", "/ by zero")
		}
		frame.Push(LongValue(v1.Long % v2.Long))
	case OpFrem:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(FloatValue(float32(math.Mod(float64(v1.Flt), float64(v2.Flt)))))
	case OpDrem:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(DoubleValue(math.Mod(v1.Dbl, v2.Dbl)))

	case OpIneg:
		v := frame.Pop()
		frame.Push(IntValue(-v.Int))
	case OpLneg:
		v := frame.Pop()
		frame.Push(LongValue(-v.Long))
	case OpFneg:
		v := frame.Pop()
		frame.Push(FloatValue(-v.Flt))
	case OpDneg:
		v := frame.Pop()
		frame.Push(DoubleValue(-v.Dbl))

	case OpIshl:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(v1.Int << (uint32(v2.Int) & 0x1f)))
	case OpLshl:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(LongValue(v1.Long << (uint32(v2.Int) & 0x3f)))
	case OpIshr:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(v1.Int >> (uint32(v2.Int) & 0x1f)))
	case OpLshr:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(LongValue(v1.Long >> (uint32(v2.Int) & 0x3f)))
	case OpIushr:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(int32(uint32(v1.Int) >> (uint32(v2.Int) & 0x1f))))
	case OpLushr:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(LongValue(int64(uint64(v1.Long) >> (uint32(v2.Int) & 0x3f))))

	case OpIand:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(v1.Int & v2.Int))
	case OpLand:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(LongValue(v1.Long & v2.Long))
	case OpIor:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(v1.Int | v2.Int))
	case OpLor:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(LongValue(v1.Long | v2.Long))
	case OpIxor:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(IntValue(v1.Int ^ v2.Int))
	case OpLxor:
		v2, v1 := frame.Pop(), frame.Pop()
		frame.Push(LongValue(v1.Long ^ v2.Long))

	case OpIinc:
		index := frame.ReadU8()
		delta := frame.ReadI8()
		local := frame.GetLocal(int(index))
		frame.SetLocal(int(index), IntValue(local.Int+int32(delta)))
	}
	return Value{}, false, nil
}
