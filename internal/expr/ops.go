package expr

import (
	"github.com/gmofishsauce/sphinx/internal/asmerr"
	"github.com/gmofishsauce/sphinx/internal/origin"
)

// BinaryOp builds the Operation for a two-operand arithmetic or bitwise
// operator. Division and modulo are floor division/modulo (Python
// semantics), not Go's truncate-toward-zero: -7 / 2 is -4, not -3.
func BinaryOp(name string, lhs, rhs Expression, o origin.Origin) Operation {
	fn := binaryFns[name]
	return Operation{Name: name, Fn: fn, Deps: []Expression{lhs, rhs}, Origin: o}
}

// UnaryOp builds the Operation for a prefix unary operator: + - ~.
func UnaryOp(name string, operand Expression, o origin.Origin) Operation {
	fn := unaryFns[name]
	return Operation{Name: name, Fn: fn, Deps: []Expression{operand}, Origin: o}
}

func intArgs(args []Value) (int64, int64, error) {
	if args[0].Kind != KindInt || args[1].Kind != KindInt {
		return 0, 0, asmerr.Expressionf(origin.Unknown, "operator requires integer operands")
	}
	return args[0].Int, args[1].Int, nil
}

// floorDiv and floorMod implement Python's `//` and `%`: the quotient is
// rounded toward negative infinity, so the remainder always has the same
// sign as the divisor.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

var binaryFns = map[string]func(args []Value) (Value, error){
	"+": func(args []Value) (Value, error) {
		a, b, err := intArgs(args)
		if err != nil {
			return Value{}, err
		}
		return IntValue(a + b), nil
	},
	"-": func(args []Value) (Value, error) {
		a, b, err := intArgs(args)
		if err != nil {
			return Value{}, err
		}
		return IntValue(a - b), nil
	},
	"*": func(args []Value) (Value, error) {
		a, b, err := intArgs(args)
		if err != nil {
			return Value{}, err
		}
		return IntValue(a * b), nil
	},
	"/": func(args []Value) (Value, error) {
		a, b, err := intArgs(args)
		if err != nil {
			return Value{}, err
		}
		if b == 0 {
			return Value{}, asmerr.Evaluationf(origin.Unknown, nil, "division by zero")
		}
		return IntValue(floorDiv(a, b)), nil
	},
	"%": func(args []Value) (Value, error) {
		a, b, err := intArgs(args)
		if err != nil {
			return Value{}, err
		}
		if b == 0 {
			return Value{}, asmerr.Evaluationf(origin.Unknown, nil, "modulo by zero")
		}
		return IntValue(floorMod(a, b)), nil
	},
	"|": func(args []Value) (Value, error) {
		a, b, err := intArgs(args)
		if err != nil {
			return Value{}, err
		}
		return IntValue(a | b), nil
	},
	"^": func(args []Value) (Value, error) {
		a, b, err := intArgs(args)
		if err != nil {
			return Value{}, err
		}
		return IntValue(a ^ b), nil
	},
	"&": func(args []Value) (Value, error) {
		a, b, err := intArgs(args)
		if err != nil {
			return Value{}, err
		}
		return IntValue(a & b), nil
	},
	"<<": func(args []Value) (Value, error) {
		a, b, err := intArgs(args)
		if err != nil {
			return Value{}, err
		}
		if b < 0 {
			return Value{}, asmerr.Evaluationf(origin.Unknown, nil, "negative shift amount")
		}
		return IntValue(a << uint(b)), nil
	},
	">>": func(args []Value) (Value, error) {
		a, b, err := intArgs(args)
		if err != nil {
			return Value{}, err
		}
		if b < 0 {
			return Value{}, asmerr.Evaluationf(origin.Unknown, nil, "negative shift amount")
		}
		return IntValue(a >> uint(b)), nil
	},
}

var unaryFns = map[string]func(args []Value) (Value, error){
	"+": func(args []Value) (Value, error) {
		if args[0].Kind != KindInt {
			return Value{}, asmerr.Expressionf(origin.Unknown, "unary + requires an integer operand")
		}
		return IntValue(args[0].Int), nil
	},
	"-": func(args []Value) (Value, error) {
		if args[0].Kind != KindInt {
			return Value{}, asmerr.Expressionf(origin.Unknown, "unary - requires an integer operand")
		}
		return IntValue(-args[0].Int), nil
	},
	"~": func(args []Value) (Value, error) {
		if args[0].Kind != KindInt {
			return Value{}, asmerr.Expressionf(origin.Unknown, "unary ~ requires an integer operand")
		}
		return IntValue(^args[0].Int), nil
	},
}
