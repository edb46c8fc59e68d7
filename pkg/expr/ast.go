package expr

import (
	"fmt"
	"strconv"

	"github.com/lemonberrylabs/polycalc/pkg/ops"
	"github.com/lemonberrylabs/polycalc/pkg/poly"
)

// Node is the interface for all expression AST nodes.
type Node interface {
	nodeType() string
	String() string
}

// LiteralNode represents an integer literal.
type LiteralNode struct {
	Value int64
}

func (n *LiteralNode) nodeType() string { return "Literal" }
func (n *LiteralNode) String() string   { return strconv.FormatInt(n.Value, 10) }

// VariableNode represents x.
type VariableNode struct{}

func (n *VariableNode) nodeType() string { return "Variable" }
func (n *VariableNode) String() string   { return "x" }

// BinaryNode represents a binary operation. Implicit multiplication is
// recorded as TokenStar.
type BinaryNode struct {
	Op    TokenType
	Left  Node
	Right Node
}

func (n *BinaryNode) nodeType() string { return "Binary" }
func (n *BinaryNode) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left, opSymbol(n.Op), n.Right)
}

// UnaryNode represents negation (TokenMinus) or square root (TokenRoot).
type UnaryNode struct {
	Op      TokenType
	Operand Node
}

func (n *UnaryNode) nodeType() string { return "Unary" }
func (n *UnaryNode) String() string {
	return fmt.Sprintf("%s%s", opSymbol(n.Op), n.Operand)
}

// PowerNode represents base^exp.
type PowerNode struct {
	Base Node
	Exp  int
}

func (n *PowerNode) nodeType() string { return "Power" }
func (n *PowerNode) String() string   { return fmt.Sprintf("%s^%d", n.Base, n.Exp) }

// EquationNode represents Left = Right.
type EquationNode struct {
	Left  Node
	Right Node
}

func (n *EquationNode) nodeType() string { return "Equation" }
func (n *EquationNode) String() string   { return fmt.Sprintf("%s = %s", n.Left, n.Right) }

func opSymbol(tt TokenType) string {
	switch tt {
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenRoot:
		return "√"
	default:
		return "?"
	}
}

// treeBuilder builds AST nodes instead of folding.
type treeBuilder struct{}

func (treeBuilder) integer(v int64) Node { return &LiteralNode{Value: v} }
func (treeBuilder) variable() Node       { return &VariableNode{} }

func (treeBuilder) binary(op Token, left, right Node) (Node, error) {
	return &BinaryNode{Op: op.Type, Left: left, Right: right}, nil
}

func (treeBuilder) negate(operand Node) (Node, error) {
	return &UnaryNode{Op: TokenMinus, Operand: operand}, nil
}

func (treeBuilder) power(base Node, exp int) (Node, error) {
	return &PowerNode{Base: base, Exp: exp}, nil
}

func (treeBuilder) root(operand Node) (Node, error) {
	return &UnaryNode{Op: TokenRoot, Operand: operand}, nil
}

func (treeBuilder) equation(left, right Node) (Node, error) {
	return &EquationNode{Left: left, Right: right}, nil
}

// Eval folds an AST into a polynomial with the given strategies. For the
// same input, Eval(ParseTree(s)) equals ParseWith(s, set) whenever both
// succeed.
func Eval(node Node, set ops.Set) (poly.Polynomial, error) {
	switch n := node.(type) {
	case *LiteralNode:
		return poly.Constant(n.Value), nil
	case *VariableNode:
		return poly.Variable(), nil
	case *BinaryNode:
		left, err := Eval(n.Left, set)
		if err != nil {
			return poly.Polynomial{}, err
		}
		right, err := Eval(n.Right, set)
		if err != nil {
			return poly.Polynomial{}, err
		}
		return binaryStrategy(set, n.Op).Apply(left, right)
	case *UnaryNode:
		operand, err := Eval(n.Operand, set)
		if err != nil {
			return poly.Polynomial{}, err
		}
		if n.Op == TokenRoot {
			return set.Root.Apply(operand)
		}
		return set.Neg.Apply(operand)
	case *PowerNode:
		base, err := Eval(n.Base, set)
		if err != nil {
			return poly.Polynomial{}, err
		}
		return set.Pow.Apply(base, n.Exp)
	case *EquationNode:
		left, err := Eval(n.Left, set)
		if err != nil {
			return poly.Polynomial{}, err
		}
		right, err := Eval(n.Right, set)
		if err != nil {
			return poly.Polynomial{}, err
		}
		return set.Sub.Apply(left, right)
	default:
		return poly.Polynomial{}, fmt.Errorf("unsupported node type %T", node)
	}
}
