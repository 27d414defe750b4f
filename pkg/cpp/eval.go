package cpp

import (
	"math"
	"strings"

	"github.com/raymyers/ctypemap/pkg/cabs"
	"github.com/raymyers/ctypemap/pkg/diag"
	"modernc.org/mathutil"
)

type evalResult struct {
	value MacroValue
	err   error
}

// Evaluator computes macro values. Results are memoized per name, and the
// stack of macros being expanded detects self-reference.
type Evaluator struct {
	macros Macros
	memo   map[string]evalResult
	stack  []string
}

// NewEvaluator creates an evaluator over a macro source
func NewEvaluator(macros Macros) *Evaluator {
	return &Evaluator{
		macros: macros,
		memo:   make(map[string]evalResult),
	}
}

// Eval returns the value of the macro name
func (e *Evaluator) Eval(name string) (MacroValue, error) {
	if r, ok := e.memo[name]; ok {
		return r.value, r.err
	}
	d, ok := e.macros.LookupMacro(name)
	if !ok {
		return MacroValue{}, diag.Errorf(diag.UnresolvedReference, 0, "undefined macro %s", name)
	}

	for i, active := range e.stack {
		if active == name {
			chain := append(append([]string(nil), e.stack[i:]...), name)
			return MacroValue{}, diag.Errorf(diag.CyclicDefine, d.Line,
				"macro %s expands itself (%s)", name, strings.Join(chain, " -> "))
		}
	}

	if d.Body == nil {
		err := diag.Errorf(diag.SyntaxError, d.Line, "macro %s is empty and has no value", name)
		e.memo[name] = evalResult{err: err}
		return MacroValue{}, err
	}

	e.stack = append(e.stack, name)
	v, err := e.eval(d.Body, d.Line, nil)
	e.stack = e.stack[:len(e.stack)-1]

	e.memo[name] = evalResult{value: v, err: err}
	return v, err
}

// EvalExpr evaluates a constant expression appearing on line. Names are
// looked up in locals first (enumerators), then as macros.
func (e *Evaluator) EvalExpr(expr cabs.Expr, line int, locals map[string]MacroValue) (MacroValue, error) {
	return e.eval(expr, line, locals)
}

func (e *Evaluator) eval(expr cabs.Expr, line int, locals map[string]MacroValue) (MacroValue, error) {
	switch x := expr.(type) {
	case cabs.IntLit:
		if x.Value > math.MaxInt64 {
			return MacroValue{}, diag.Errorf(diag.SyntaxError, line, "integer literal %s does not fit in 64 bits", cabs.ExprString(x))
		}
		return MacroValue{Kind: Integer, Int: int64(x.Value), Bits: literalBits(x)}, nil

	case cabs.CharLit:
		return MacroValue{Kind: Integer, Int: x.Value, Bits: 8}, nil

	case cabs.StringLit:
		return StringValue(x.Value), nil

	case cabs.Ident:
		if v, ok := locals[x.Name]; ok {
			return v, nil
		}
		if _, ok := e.macros.LookupMacro(x.Name); !ok {
			return MacroValue{}, diag.Errorf(diag.UnresolvedReference, line, "undefined name %s", x.Name)
		}
		return e.Eval(x.Name)

	case cabs.Paren:
		return e.eval(x.Expr, line, locals)

	case cabs.Unary:
		return e.evalUnary(x, line, locals)

	case cabs.Binary:
		return e.evalBinary(x, line, locals)
	}
	return MacroValue{}, diag.Errorf(diag.SyntaxError, line, "invalid constant expression %s", cabs.ExprString(expr))
}

func (e *Evaluator) evalUnary(x cabs.Unary, line int, locals map[string]MacroValue) (MacroValue, error) {
	if x.Op == cabs.OpAddr {
		return MacroValue{}, diag.Errorf(diag.SyntaxError, line, "address-of in constant expression")
	}
	v, err := e.eval(x.Expr, line, locals)
	if err != nil {
		return MacroValue{}, err
	}
	if v.Kind != Integer {
		return MacroValue{}, diag.Errorf(diag.SyntaxError, line, "string operand to unary %s", x.Op)
	}

	switch x.Op {
	case cabs.OpNeg:
		if v.Int == math.MinInt64 {
			return MacroValue{}, diag.Errorf(diag.SyntaxError, line, "-%s overflows 64 bits", cabs.ExprString(x.Expr))
		}
		v.Int = -v.Int
	case cabs.OpBitNot:
		v.Int = ^v.Int
	}
	v.Bits = mathutil.Max(v.Bits, valueBits(v.Int))
	return v, nil
}

func (e *Evaluator) evalBinary(x cabs.Binary, line int, locals map[string]MacroValue) (MacroValue, error) {
	left, err := e.eval(x.Left, line, locals)
	if err != nil {
		return MacroValue{}, err
	}
	right, err := e.eval(x.Right, line, locals)
	if err != nil {
		return MacroValue{}, err
	}
	if left.Kind != Integer || right.Kind != Integer {
		return MacroValue{}, diag.Errorf(diag.SyntaxError, line, "string operand to %s", x.Op)
	}

	a, b := left.Int, right.Int
	var r int64
	var overflow bool
	switch x.Op {
	case cabs.OpAdd:
		r = a + b
		overflow = (b > 0 && r < a) || (b < 0 && r > a)
	case cabs.OpSub:
		r = a - b
		overflow = (b < 0 && r < a) || (b > 0 && r > a)
	case cabs.OpMul:
		r = a * b
		overflow = a != 0 && (r/a != b || (a == -1 && b == math.MinInt64))
	case cabs.OpDiv, cabs.OpMod:
		if b == 0 {
			return MacroValue{}, diag.Errorf(diag.SyntaxError, line, "division by zero")
		}
		if a == math.MinInt64 && b == -1 {
			overflow = x.Op == cabs.OpDiv
		} else if x.Op == cabs.OpDiv {
			r = a / b
		} else {
			r = a % b
		}
	case cabs.OpShl, cabs.OpShr:
		if b < 0 || b >= 64 {
			return MacroValue{}, diag.Errorf(diag.SyntaxError, line, "shift count %d out of range", b)
		}
		if x.Op == cabs.OpShl {
			r = a << uint(b)
			overflow = r>>uint(b) != a
		} else {
			r = a >> uint(b)
		}
	case cabs.OpBitAnd:
		r = a & b
	case cabs.OpBitOr:
		r = a | b
	case cabs.OpBitXor:
		r = a ^ b
	default:
		return MacroValue{}, diag.Errorf(diag.SyntaxError, line, "unknown operator %s", x.Op)
	}

	if overflow {
		return MacroValue{}, diag.Errorf(diag.SyntaxError, line, "%s overflows 64 bits", cabs.ExprString(x))
	}

	bits := mathutil.Max(mathutil.Max(left.Bits, right.Bits), valueBits(r))
	return MacroValue{Kind: Integer, Int: r, Bits: bits}, nil
}

// literalBits is the width hint of a literal: four bits per written hex
// digit, otherwise the bit length of the value
func literalBits(lit cabs.IntLit) int {
	text := strings.ToLower(strings.TrimRight(lit.Text, "uUlL"))
	if digits, ok := strings.CutPrefix(text, "0x"); ok {
		return roundBits(4 * len(digits))
	}
	return roundBits(mathutil.BitLenUint64(lit.Value))
}

func valueBits(v int64) int {
	if v < 0 {
		return roundBits(mathutil.BitLenUint64(uint64(-v)) + 1)
	}
	return roundBits(mathutil.BitLenUint64(uint64(v)))
}

func roundBits(n int) int {
	switch {
	case n <= 8:
		return 8
	case n <= 16:
		return 16
	case n <= 32:
		return 32
	}
	return 64
}
