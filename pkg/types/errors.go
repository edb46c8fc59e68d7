// Package types holds the error taxonomy shared by the algebra packages.
package types

import (
	"errors"
	"fmt"
)

// Kind classifies an AlgebraError.
type Kind string

// Error kind constants.
const (
	KindLex         Kind = "LexError"
	KindParse       Kind = "ParseError"
	KindArithmetic  Kind = "ArithmeticError"
	KindUnsupported Kind = "UnsupportedEquationError"
)

// AlgebraError is the single failure type produced by tokenizing, parsing,
// polynomial arithmetic and solving.
type AlgebraError struct {
	Kind    Kind
	Message string
	Pos     int    // offset into the whitespace-stripped input, -1 if unknown
	Token   string // offending token or character, if any
}

// Error implements the error interface.
func (e *AlgebraError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s: %s at position %d", e.Kind, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ToMap converts the error to a JSON-friendly map.
func (e *AlgebraError) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"kind":    string(e.Kind),
		"message": e.Message,
	}
	if e.Pos >= 0 {
		m["position"] = e.Pos
	}
	if e.Token != "" {
		m["token"] = e.Token
	}
	return m
}

// KindOf returns the kind of the first AlgebraError in err's chain, or ""
// when there is none.
func KindOf(err error) Kind {
	var ae *AlgebraError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err carries an AlgebraError of the given kind.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Common error constructors.

// NewLexError creates a LexError for an unrecognized character.
func NewLexError(msg string, tok string, pos int) *AlgebraError {
	return &AlgebraError{Kind: KindLex, Message: msg, Pos: pos, Token: tok}
}

// NewParseError creates a ParseError pointing at the offending token.
func NewParseError(msg string, tok string, pos int) *AlgebraError {
	return &AlgebraError{Kind: KindParse, Message: msg, Pos: pos, Token: tok}
}

// NewArithmeticError creates an ArithmeticError.
func NewArithmeticError(msg string) *AlgebraError {
	return &AlgebraError{Kind: KindArithmetic, Message: msg, Pos: -1}
}

// NewUnsupportedEquationError creates an UnsupportedEquationError.
func NewUnsupportedEquationError(msg string) *AlgebraError {
	return &AlgebraError{Kind: KindUnsupported, Message: msg, Pos: -1}
}
