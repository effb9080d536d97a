package expr

import "math"

func builtinFunctions() []*Function {
	return []*Function{
		unaryMath("sin", math.Sin),
		unaryMath("cos", math.Cos),
		unaryMath("tan", math.Tan),
		unaryMath("asin", math.Asin),
		unaryMath("acos", math.Acos),
		unaryMath("atan", math.Atan),
		unaryMath("sqrt", math.Sqrt),
		unaryMath("exp", math.Exp),
		unaryMath("ln", math.Log),
		unaryMath("log10", math.Log10),
		unaryMath("log2", math.Log2),
		{Name: "atan2", Arity: Fixed(2), Apply: numericArgs("atan2", func(a []float64) Value { return Double(math.Atan2(a[0], a[1])) })},
		{Name: "pow", Arity: Fixed(2), Apply: func(args []Value) (Value, error) { return power(args[0], args[1]) }},
		{Name: "log", Arity: Fixed(2), Apply: numericArgs("log", func(a []float64) Value { return Double(math.Log(a[0]) / math.Log(a[1])) })},

		{Name: "abs", Arity: Fixed(1), Apply: keepInt("abs", func(n int) int {
			if n < 0 {
				return -n
			}
			return n
		}, math.Abs)},
		roundingFunc("floor", math.Floor),
		roundingFunc("ceil", math.Ceil),
		roundingFunc("round", math.Round),

		{Name: "min", Arity: Variadic, Apply: fold("min", func(a, b int) int { return min(a, b) }, math.Min)},
		{Name: "max", Arity: Variadic, Apply: fold("max", func(a, b int) int { return max(a, b) }, math.Max)},
		{Name: "sum", Arity: Variadic, Apply: fold("sum", func(a, b int) int { return a + b }, func(a, b float64) float64 { return a + b })},
		{Name: "avg", Arity: Variadic, Apply: numericArgs("avg", func(a []float64) Value {
			total := 0.0
			for _, x := range a {
				total += x
			}
			return Double(total / float64(len(a)))
		})},
		{Name: "count", Arity: Variadic, Apply: func(args []Value) (Value, error) { return Int(len(args)), nil }},

		{Name: "rgb", Arity: Fixed(3), Apply: numericArgs("rgb", func(a []float64) Value {
			return RGBA(channel(a[0]), channel(a[1]), channel(a[2]), 255)
		})},
		{Name: "rgba", Arity: Fixed(4), Apply: numericArgs("rgba", func(a []float64) Value {
			return RGBA(channel(a[0]), channel(a[1]), channel(a[2]), channel(a[3]))
		})},

		{Name: "int", Arity: Fixed(1), Apply: func(args []Value) (Value, error) { return Int(args[0].AsInt()), nil }},
		{Name: "double", Arity: Fixed(1), Apply: func(args []Value) (Value, error) { return Double(args[0].AsDouble()), nil }},
		{Name: "bool", Arity: Fixed(1), Apply: func(args []Value) (Value, error) { return Bool(args[0].AsBool()), nil }},
		{Name: "string", Arity: Fixed(1), Apply: func(args []Value) (Value, error) { return String(args[0].AsString()), nil }},
	}
}

func unaryMath(name string, f func(float64) float64) *Function {
	return &Function{Name: name, Arity: Fixed(1), Apply: numericArgs(name, func(a []float64) Value { return Double(f(a[0])) })}
}

func roundingFunc(name string, f func(float64) float64) *Function {
	return &Function{Name: name, Arity: Fixed(1), Apply: keepInt(name, func(n int) int { return n }, f)}
}

// numericArgs requires every argument to be numeric and hands them over as
// float64.
func numericArgs(name string, f func(a []float64) Value) func(args []Value) (Value, error) {
	return func(args []Value) (Value, error) {
		fs := make([]float64, len(args))
		for i, a := range args {
			if !a.IsNumeric() {
				return Value{}, evalErr(ErrTypeMismatch, "%s: argument %d is %s", name, i+1, a.Kind())
			}
			fs[i] = a.AsDouble()
		}
		return f(fs), nil
	}
}

// keepInt applies ints to an Int argument and floats to a Double.
func keepInt(name string, ints func(int) int, floats func(float64) float64) func(args []Value) (Value, error) {
	return func(args []Value) (Value, error) {
		switch a := args[0]; a.Kind() {
		case KindInt:
			return Int(ints(a.AsInt())), nil
		case KindDouble:
			return Double(floats(a.AsDouble())), nil
		default:
			return Value{}, evalErr(ErrTypeMismatch, "%s: argument is %s", name, a.Kind())
		}
	}
}

// fold reduces the arguments left to right, staying in Int while every
// argument is an Int.
func fold(name string, ints func(a, b int) int, floats func(a, b float64) float64) func(args []Value) (Value, error) {
	return func(args []Value) (Value, error) {
		allInt := true
		for i, a := range args {
			if !a.IsNumeric() {
				return Value{}, evalErr(ErrTypeMismatch, "%s: argument %d is %s", name, i+1, a.Kind())
			}
			allInt = allInt && a.Kind() == KindInt
		}
		if allInt {
			acc := args[0].AsInt()
			for _, a := range args[1:] {
				acc = ints(acc, a.AsInt())
			}
			return Int(acc), nil
		}
		acc := args[0].AsDouble()
		for _, a := range args[1:] {
			acc = floats(acc, a.AsDouble())
		}
		return Double(acc), nil
	}
}

func channel(f float64) uint8 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 255:
		return 255
	}
	return uint8(math.Round(f))
}
