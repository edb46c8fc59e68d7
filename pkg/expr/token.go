// Package expr tokenizes and parses single-variable algebraic expressions
// and equations into polynomials.
package expr

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

const (
	TokenInt      TokenType = iota // non-negative integer literal
	TokenVariable                  // x
	TokenPlus                      // +
	TokenMinus                     // -
	TokenStar                      // *
	TokenSlash                     // /
	TokenCaret                     // ^
	TokenRoot                      // R or √
	TokenLParen                    // (
	TokenRParen                    // )
	TokenEOF                       // end of input
)

// Token represents a single lexical token.
type Token struct {
	Type   TokenType
	Value  string // raw text
	IntVal int64  // parsed value (for TokenInt)
	Pos    int    // offset into the whitespace-stripped input
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenInt:
		return "INT"
	case TokenVariable:
		return "X"
	case TokenPlus:
		return "PLUS"
	case TokenMinus:
		return "MINUS"
	case TokenStar:
		return "MUL"
	case TokenSlash:
		return "DIV"
	case TokenCaret:
		return "POWER"
	case TokenRoot:
		return "ROOT"
	case TokenLParen:
		return "LEFT_PAREN"
	case TokenRParen:
		return "RIGHT_PAREN"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// String renders integer tokens as INT(5) and every other token by type.
func (t Token) String() string {
	if t.Type == TokenInt {
		return fmt.Sprintf("INT(%d)", t.IntVal)
	}
	return t.Type.String()
}

// startsPrimary reports whether a token of this type can begin a primary,
// which is what triggers implicit multiplication.
func (t TokenType) startsPrimary() bool {
	switch t {
	case TokenInt, TokenVariable, TokenLParen, TokenRoot:
		return true
	}
	return false
}
