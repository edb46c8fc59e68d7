package expr

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lemonberrylabs/polycalc/pkg/types"
)

// Lexer tokenizes one side of an algebraic expression. A Lexer holds its
// scan position and must not be shared between goroutines; build a new one
// per input.
type Lexer struct {
	input  string
	offset int // added to every reported position
	pos    int
	tokens []Token
}

// NewLexer creates a lexer for input. All whitespace is removed before
// scanning, so positions refer to the stripped text.
func NewLexer(input string) *Lexer {
	return &Lexer{input: StripSpace(input)}
}

// newLexerAt creates a lexer over already stripped input whose positions
// start at offset.
func newLexerAt(stripped string, offset int) *Lexer {
	return &Lexer{input: stripped, offset: offset}
}

// StripSpace removes every Unicode whitespace character from s.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Tokenize scans the entire input and returns all tokens. The last token is
// always the single TokenEOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, nil
}

// next returns the next token from the input.
func (l *Lexer) next() (Token, error) {
	start := l.offset + l.pos
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: start}, nil
	}

	ch := l.input[l.pos]
	if ch >= '0' && ch <= '9' {
		return l.readInt()
	}

	var tt TokenType
	switch ch {
	case 'x', 'X':
		tt = TokenVariable
	case '+':
		tt = TokenPlus
	case '-':
		tt = TokenMinus
	case '*':
		tt = TokenStar
	case '/':
		tt = TokenSlash
	case '^':
		tt = TokenCaret
	case 'R':
		tt = TokenRoot
	case '(':
		tt = TokenLParen
	case ')':
		tt = TokenRParen
	default:
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if r == '√' {
			l.pos += size
			return Token{Type: TokenRoot, Value: "√", Pos: start}, nil
		}
		return Token{}, types.NewLexError("unexpected character "+strconv.QuoteRune(r), string(r), start)
	}

	l.pos++
	return Token{Type: tt, Value: string(ch), Pos: start}, nil
}

// readInt reads a maximal run of decimal digits.
func (l *Lexer) readInt() (Token, error) {
	begin := l.pos
	for l.pos < len(l.input) && l.input[l.pos] >= '0' && l.input[l.pos] <= '9' {
		l.pos++
	}

	raw := l.input[begin:l.pos]
	i, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Token{}, types.NewLexError("invalid integer "+strconv.Quote(raw), raw, l.offset+begin)
	}
	return Token{Type: TokenInt, Value: raw, IntVal: i, Pos: l.offset + begin}, nil
}
