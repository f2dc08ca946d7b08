// Package rules evaluates the arithmetic expressions generation rules
// use for quantities, without eval-style execution. Expressions are
// tokenized, converted to reverse Polish notation with the shunting
// yard algorithm and evaluated over decimals.
//
// Supported: + - * /, parentheses, numeric literals, variables, and
// the functions ceil(x), floor(x), round(x), min(a,b), max(a,b) and
// case(cond,a,b). Division by zero yields 0. Results are rounded to
// two decimals.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidExpression wraps every evaluation failure.
var ErrInvalidExpression = errors.New("invalid_expression")

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenVariable
	tokenOperator
	tokenFunction
	tokenLeftParen
	tokenRightParen
	tokenComma
)

type token struct {
	kind  tokenKind
	value string
}

var precedence = map[string]int{
	"+": 1,
	"-": 1,
	"*": 2,
	"/": 2,
}

var functionArity = map[string]int{
	"ceil":  1,
	"floor": 1,
	"round": 1,
	"min":   2,
	"max":   2,
	"case":  3,
}

// Evaluator evaluates expressions against a fixed set of variables.
type Evaluator struct {
	numbers map[string]decimal.Decimal
	strings map[string]string
}

// NewEvaluator builds an evaluator from a variable map. Booleans
// become 1/0, numeric kinds become decimals, and strings are kept but
// reject arithmetic use. Other kinds are an error.
func NewEvaluator(vars map[string]any) (*Evaluator, error) {
	e := &Evaluator{
		numbers: map[string]decimal.Decimal{},
		strings: map[string]string{},
	}
	for name, raw := range vars {
		switch v := raw.(type) {
		case bool:
			if v {
				e.numbers[name] = decimal.NewFromInt(1)
			} else {
				e.numbers[name] = decimal.Zero
			}
		case int:
			e.numbers[name] = decimal.NewFromInt(int64(v))
		case int64:
			e.numbers[name] = decimal.NewFromInt(v)
		case float64:
			e.numbers[name] = decimal.NewFromFloat(v)
		case decimal.Decimal:
			e.numbers[name] = v
		case string:
			e.strings[name] = v
		default:
			return nil, fmt.Errorf("%w: unsupported variable type for %q", ErrInvalidExpression, name)
		}
	}
	return e, nil
}

// Evaluate parses and evaluates one expression, returning the result
// rounded to two decimals.
func (e *Evaluator) Evaluate(expression string) (decimal.Decimal, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return decimal.Zero, err
	}
	rpn, err := shuntingYard(tokens)
	if err != nil {
		return decimal.Zero, err
	}
	return e.evaluateRPN(rpn)
}

func tokenize(expression string) ([]token, error) {
	expression = strings.ReplaceAll(expression, " ", "")
	if expression == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}
	for _, r := range expression {
		if !isTokenRune(r) {
			return nil, fmt.Errorf("%w: unexpected character %q", ErrInvalidExpression, r)
		}
	}

	var tokens []token
	i := 0
	for i < len(expression) {
		c := expression[i]
		switch {
		case isDigit(c) || c == '.':
			start := i
			for i < len(expression) && (isDigit(expression[i]) || expression[i] == '.') {
				i++
			}
			literal := expression[start:i]
			if _, err := decimal.NewFromString(literal); err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrInvalidExpression, literal)
			}
			tokens = append(tokens, token{tokenNumber, literal})
		case isIdentStart(c):
			start := i
			for i < len(expression) && isIdentRune(expression[i]) {
				i++
			}
			ident := expression[start:i]
			if i < len(expression) && expression[i] == '(' {
				if _, ok := functionArity[ident]; !ok {
					return nil, fmt.Errorf("%w: unknown function %q", ErrInvalidExpression, ident)
				}
				tokens = append(tokens, token{tokenFunction, ident})
			} else {
				tokens = append(tokens, token{tokenVariable, ident})
			}
		case c == '+' || c == '-' || c == '*' || c == '/':
			tokens = append(tokens, token{tokenOperator, string(c)})
			i++
		case c == '(':
			tokens = append(tokens, token{tokenLeftParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokenRightParen, ")"})
			i++
		case c == ',':
			tokens = append(tokens, token{tokenComma, ","})
			i++
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", ErrInvalidExpression, c)
		}
	}
	return tokens, nil
}

func shuntingYard(tokens []token) ([]token, error) {
	var output []token
	var stack []token

	for _, t := range tokens {
		switch t.kind {
		case tokenNumber, tokenVariable:
			output = append(output, t)
		case tokenFunction:
			stack = append(stack, t)
		case tokenOperator:
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if top.kind != tokenOperator || precedence[top.value] < precedence[t.value] {
					break
				}
				output = append(output, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, t)
		case tokenLeftParen:
			stack = append(stack, t)
		case tokenRightParen:
			for len(stack) > 0 && stack[len(stack)-1].kind != tokenLeftParen {
				output = append(output, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: mismatched parentheses", ErrInvalidExpression)
			}
			stack = stack[:len(stack)-1]
			if len(stack) > 0 && stack[len(stack)-1].kind == tokenFunction {
				output = append(output, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
		case tokenComma:
			for len(stack) > 0 && stack[len(stack)-1].kind != tokenLeftParen {
				output = append(output, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: misplaced comma", ErrInvalidExpression)
			}
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.kind == tokenLeftParen {
			return nil, fmt.Errorf("%w: mismatched parentheses", ErrInvalidExpression)
		}
		output = append(output, top)
		stack = stack[:len(stack)-1]
	}
	return output, nil
}

func (e *Evaluator) evaluateRPN(rpn []token) (decimal.Decimal, error) {
	var stack []decimal.Decimal

	pop := func() decimal.Decimal {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, t := range rpn {
		switch t.kind {
		case tokenNumber:
			v, err := decimal.NewFromString(t.value)
			if err != nil {
				return decimal.Zero, fmt.Errorf("%w: bad number %q", ErrInvalidExpression, t.value)
			}
			stack = append(stack, v)
		case tokenVariable:
			if _, isString := e.strings[t.value]; isString {
				return decimal.Zero, fmt.Errorf("%w: variable %q is a string and cannot be used in calculations", ErrInvalidExpression, t.value)
			}
			v, ok := e.numbers[t.value]
			if !ok {
				return decimal.Zero, fmt.Errorf("%w: undefined variable %q", ErrInvalidExpression, t.value)
			}
			stack = append(stack, v)
		case tokenOperator:
			if len(stack) < 2 {
				return decimal.Zero, fmt.Errorf("%w: insufficient operands for %q", ErrInvalidExpression, t.value)
			}
			b := pop()
			a := pop()
			stack = append(stack, applyOperator(t.value, a, b))
		case tokenFunction:
			arity := functionArity[t.value]
			if len(stack) < arity {
				return decimal.Zero, fmt.Errorf("%w: insufficient operands for %q", ErrInvalidExpression, t.value)
			}
			args := make([]decimal.Decimal, arity)
			for i := arity - 1; i >= 0; i-- {
				args[i] = pop()
			}
			stack = append(stack, applyFunction(t.value, args))
		}
	}

	if len(stack) != 1 {
		return decimal.Zero, fmt.Errorf("%w: unbalanced expression", ErrInvalidExpression)
	}
	return stack[0].Round(2), nil
}

func applyOperator(op string, a, b decimal.Decimal) decimal.Decimal {
	switch op {
	case "+":
		return a.Add(b)
	case "-":
		return a.Sub(b)
	case "*":
		return a.Mul(b)
	case "/":
		if b.IsZero() {
			return decimal.Zero
		}
		return a.Div(b)
	}
	return decimal.Zero
}

func applyFunction(name string, args []decimal.Decimal) decimal.Decimal {
	switch name {
	case "ceil":
		return args[0].Round(2).Ceil()
	case "floor":
		return args[0].Round(2).Floor()
	case "round":
		return args[0].Round(2)
	case "min":
		if args[0].LessThanOrEqual(args[1]) {
			return args[0]
		}
		return args[1]
	case "max":
		if args[0].GreaterThanOrEqual(args[1]) {
			return args[0]
		}
		return args[1]
	case "case":
		if !args[0].IsZero() {
			return args[1]
		}
		return args[2]
	}
	return decimal.Zero
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentRune(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '_', '+', '-', '*', '/', '(', ')', '.', ',':
		return true
	}
	return false
}
