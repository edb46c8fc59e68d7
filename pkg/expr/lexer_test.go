package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lemonberrylabs/polycalc/pkg/types"
)

func TestTokenize(t *testing.T) {
	tokens, err := NewLexer(" 12x ^ 2 - R(49) / √4 * X").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, tok := range tokens {
		got = append(got, tok.String())
	}
	want := []string{
		"INT(12)", "X", "POWER", "INT(2)", "MINUS", "ROOT", "LEFT_PAREN", "INT(49)",
		"RIGHT_PAREN", "DIV", "ROOT", "INT(4)", "MUL", "X", "EOF",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("token mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizePositionsIgnoreWhitespace(t *testing.T) {
	tokens, err := NewLexer("1 +\t23").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantPos := []int{0, 1, 2, 4}
	for i, tok := range tokens {
		if tok.Pos != wantPos[i] {
			t.Errorf("token %d (%s) at %d, want %d", i, tok, tok.Pos, wantPos[i])
		}
	}
	if tokens[2].IntVal != 23 || tokens[2].Value != "23" {
		t.Errorf("multi-digit integer = %+v", tokens[2])
	}
}

func TestTokenizeEmptyInput(t *testing.T) {
	tokens, err := NewLexer("   ").Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Type != TokenEOF {
		t.Fatalf("expected a single EOF token, got %v", tokens)
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		input string
		tok   string
		pos   int
	}{
		{"2x+@", "@", 3},
		{"y", "y", 0},
		{"1 . 5", ".", 1},
		{"x=1", "=", 1},
		{"99999999999999999999", "99999999999999999999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := NewLexer(tt.input).Tokenize()
			if !types.IsKind(err, types.KindLex) {
				t.Fatalf("expected LexError, got %v", err)
			}
			ae := err.(*types.AlgebraError)
			if ae.Token != tt.tok || ae.Pos != tt.pos {
				t.Errorf("got token %q at %d, want %q at %d", ae.Token, ae.Pos, tt.tok, tt.pos)
			}
		})
	}
}
