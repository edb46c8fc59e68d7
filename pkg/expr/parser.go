package expr

import (
	"fmt"
	"strings"

	"github.com/lemonberrylabs/polycalc/pkg/ops"
	"github.com/lemonberrylabs/polycalc/pkg/poly"
	"github.com/lemonberrylabs/polycalc/pkg/types"
)

// MaxExpressionLength is the longest expression the API and CLI surfaces
// accept. The parser itself does not enforce it.
const MaxExpressionLength = 400

// builder gives the grammar its semantics. The parser calls it as each
// production completes, so results are folded during the descent.
type builder[T any] interface {
	integer(v int64) T
	variable() T
	binary(op Token, left, right T) (T, error)
	negate(operand T) (T, error)
	power(base T, exp int) (T, error)
	root(operand T) (T, error)
	equation(left, right T) (T, error)
}

// Parser is a recursive descent parser over one side of an equation.
type Parser[T any] struct {
	tokens []Token
	pos    int
	b      builder[T]
}

// Parse parses an expression or equation with the default strategies.
func Parse(input string) (poly.Polynomial, error) {
	return ParseWith(input, ops.Default())
}

// ParseWith parses an expression or equation, folding each operator with
// the strategies in set. For "L = R" the result is set.Sub applied to (L, R).
func ParseWith(input string, set ops.Set) (poly.Polynomial, error) {
	if err := set.Validate(); err != nil {
		return poly.Polynomial{}, err
	}
	return parseEquation[poly.Polynomial](input, folder{set: set})
}

// ParseTree parses an expression or equation into an AST without
// evaluating it.
func ParseTree(input string) (Node, error) {
	return parseEquation[Node](input, treeBuilder{})
}

// parseEquation splits the stripped input on the first '=' and parses each
// side with its own lexer.
func parseEquation[T any](input string, b builder[T]) (T, error) {
	s := StripSpace(input)

	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return parseSide(s, 0, b)
	}

	var zero T
	left, err := parseSide(s[:eq], 0, b)
	if err != nil {
		return zero, err
	}
	right, err := parseSide(s[eq+1:], eq+1, b)
	if err != nil {
		return zero, err
	}
	return b.equation(left, right)
}

// parseSide tokenizes and parses a full side, rejecting trailing tokens.
func parseSide[T any](side string, offset int, b builder[T]) (T, error) {
	var zero T
	tokens, err := newLexerAt(side, offset).Tokenize()
	if err != nil {
		return zero, err
	}

	p := &Parser[T]{tokens: tokens, b: b}
	result, err := p.parseSum()
	if err != nil {
		return zero, err
	}

	if tok := p.current(); tok.Type != TokenEOF {
		return zero, types.NewParseError(
			fmt.Sprintf("unexpected trailing input %s", tok), tok.Value, tok.Pos)
	}
	return result, nil
}

// current returns the current token.
func (p *Parser[T]) current() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

// advance consumes the current token and returns it.
func (p *Parser[T]) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes a token of the expected type or returns a parse error.
func (p *Parser[T]) expect(tt TokenType, msg string) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return tok, types.NewParseError(fmt.Sprintf("%s (found %s)", msg, tok), tok.Value, tok.Pos)
	}
	return p.advance(), nil
}

// parseSum handles + and - left to right.
func (p *Parser[T]) parseSum() (T, error) {
	left, err := p.parseTerm()
	if err != nil {
		return left, err
	}

	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		op := p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return right, err
		}
		if left, err = p.b.binary(op, left, right); err != nil {
			return left, err
		}
	}
	return left, nil
}

// parseTerm handles *, / and implicit multiplication ("2x", "(x+1)(x-2)").
// Implicit multiplication applies whenever the next token can begin a
// primary; no operator token is consumed for it.
func (p *Parser[T]) parseTerm() (T, error) {
	left, err := p.parseFactor()
	if err != nil {
		return left, err
	}

	for {
		var op Token
		switch tok := p.current(); {
		case tok.Type == TokenStar || tok.Type == TokenSlash:
			op = p.advance()
		case tok.Type.startsPrimary():
			op = Token{Type: TokenStar, Value: "*", Pos: tok.Pos}
		default:
			return left, nil
		}

		right, err := p.parseFactor()
		if err != nil {
			return right, err
		}
		if left, err = p.b.binary(op, left, right); err != nil {
			return left, err
		}
	}
}

// parseFactor handles a run of unary minus signs, the primary, and an
// optional integer exponent. Each '-' flips the sign, so "--x" is x. The
// exponent binds tighter than the sign: "-x^2" is -(x^2).
func (p *Parser[T]) parseFactor() (T, error) {
	neg := false
	for p.current().Type == TokenMinus {
		neg = !neg
		p.advance()
	}

	base, err := p.parsePrimary()
	if err != nil {
		return base, err
	}

	if p.current().Type == TokenCaret {
		p.advance()
		expTok, err := p.expect(TokenInt, "exponent must be a non-negative integer")
		if err != nil {
			var zero T
			return zero, err
		}
		if expTok.IntVal > int64(maxInt) {
			var zero T
			return zero, types.NewParseError(
				fmt.Sprintf("exponent %d is too large", expTok.IntVal), expTok.Value, expTok.Pos)
		}
		if base, err = p.b.power(base, int(expTok.IntVal)); err != nil {
			return base, err
		}
	}

	if neg {
		return p.b.negate(base)
	}
	return base, nil
}

// parsePrimary handles integers, the variable, parenthesized sums and the
// square-root prefix.
func (p *Parser[T]) parsePrimary() (T, error) {
	var zero T
	tok := p.current()

	switch tok.Type {
	case TokenInt:
		p.advance()
		return p.b.integer(tok.IntVal), nil
	case TokenVariable:
		p.advance()
		return p.b.variable(), nil
	case TokenLParen:
		p.advance()
		inner, err := p.parseSum()
		if err != nil {
			return zero, err
		}
		if _, err := p.expect(TokenRParen, "missing ')'"); err != nil {
			return zero, err
		}
		return inner, nil
	case TokenRoot:
		p.advance()
		operand, err := p.parsePrimary()
		if err != nil {
			return zero, err
		}
		return p.b.root(operand)
	default:
		return zero, types.NewParseError(fmt.Sprintf("primary expected, found %s", tok), tok.Value, tok.Pos)
	}
}

const maxInt = int(^uint(0) >> 1)

// folder evaluates the grammar directly into polynomials.
type folder struct {
	set ops.Set
}

func (f folder) integer(v int64) poly.Polynomial { return poly.Constant(v) }
func (f folder) variable() poly.Polynomial       { return poly.Variable() }

func (f folder) binary(op Token, left, right poly.Polynomial) (poly.Polynomial, error) {
	return binaryStrategy(f.set, op.Type).Apply(left, right)
}

func (f folder) negate(operand poly.Polynomial) (poly.Polynomial, error) {
	return f.set.Neg.Apply(operand)
}

func (f folder) power(base poly.Polynomial, exp int) (poly.Polynomial, error) {
	return f.set.Pow.Apply(base, exp)
}

func (f folder) root(operand poly.Polynomial) (poly.Polynomial, error) {
	return f.set.Root.Apply(operand)
}

func (f folder) equation(left, right poly.Polynomial) (poly.Polynomial, error) {
	return f.set.Sub.Apply(left, right)
}

// binaryStrategy maps an operator token to its strategy.
func binaryStrategy(set ops.Set, tt TokenType) ops.Binary {
	switch tt {
	case TokenPlus:
		return set.Add
	case TokenMinus:
		return set.Sub
	case TokenSlash:
		return set.Div
	default:
		return set.Mul
	}
}
