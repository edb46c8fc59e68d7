package expr

import (
	"testing"

	"github.com/lemonberrylabs/polycalc/pkg/ops"
)

func TestParseTreeString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2x+1", "((2 * x) + 1)"},
		{"1-2-3", "((1 - 2) - 3)"},
		{"-x^2", "-x^2"},
		{"--x", "x"},
		{"(x+1)(x-2)", "((x + 1) * (x - 2))"},
		{"4x/2", "((4 * x) / 2)"},
		{"R9", "√9"},
		{"x^2 = 2x", "x^2 = (2 * x)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := ParseTree(tt.input)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if got := node.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTreeNodeTypes(t *testing.T) {
	node, err := ParseTree("x = -R4")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	eq, ok := node.(*EquationNode)
	if !ok {
		t.Fatalf("expected *EquationNode, got %T", node)
	}
	if _, ok := eq.Left.(*VariableNode); !ok {
		t.Errorf("left: expected *VariableNode, got %T", eq.Left)
	}
	neg, ok := eq.Right.(*UnaryNode)
	if !ok || neg.Op != TokenMinus {
		t.Fatalf("right: expected negation, got %#v", eq.Right)
	}
	root, ok := neg.Operand.(*UnaryNode)
	if !ok || root.Op != TokenRoot {
		t.Fatalf("expected root under negation, got %#v", neg.Operand)
	}
	if lit, ok := root.Operand.(*LiteralNode); !ok || lit.Value != 4 {
		t.Errorf("expected literal 4, got %#v", root.Operand)
	}
}

func TestEvalMatchesDirectFold(t *testing.T) {
	inputs := []string{
		"2x+3",
		"x^2-1=0",
		"(x+1)(x-2)",
		"---x^3 + 2R16x",
		"(3x^2 - 7)/2",
		"5 = 2x(x - 1)",
	}
	set := ops.Default()

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			direct, err := ParseWith(in, set)
			if err != nil {
				t.Fatalf("ParseWith: %v", err)
			}
			node, err := ParseTree(in)
			if err != nil {
				t.Fatalf("ParseTree: %v", err)
			}
			viaTree, err := Eval(node, set)
			if err != nil {
				t.Fatalf("Eval: %v", err)
			}
			if !viaTree.Equal(direct) {
				t.Errorf("Eval = %v, ParseWith = %v", viaTree, direct)
			}
		})
	}
}

func TestParseTreeDefersArithmetic(t *testing.T) {
	node, err := ParseTree("x/x")
	if err != nil {
		t.Fatalf("tree building should not apply strategies: %v", err)
	}
	if _, err := Eval(node, ops.Default()); err == nil {
		t.Fatal("expected Eval to fail dividing by x")
	}
}
