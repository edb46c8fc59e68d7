// Package manifest reads YAML documents that declare equations.
//
// A manifest is either a mapping with an "equations" sequence or the
// sequence itself. Each item is an expression string or a mapping:
//
//	equations:
//	  - id: unit-circle
//	    expression: x^2 + 1 = 0
//	    description: complex roots
//	  - 2x + 4 = 0
package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/polycalc/pkg/expr"
	"github.com/lemonberrylabs/polycalc/pkg/ops"
)

// MaxSourceSize is the maximum manifest size in bytes (128 KB).
const MaxSourceSize = 128 * 1024

// MaxEquations is the maximum number of equations in one manifest.
const MaxEquations = 1000

// Definition is one declared equation.
type Definition struct {
	ID          string
	Expression  string
	Description string
}

// Manifest is a parsed manifest document.
type Manifest struct {
	Equations []Definition
}

// ParseError represents an error encountered while reading a manifest.
type ParseError struct {
	Message  string
	Location string // e.g., "equation 'unit-circle'"
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("manifest error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("manifest error: %s", e.Message)
}

// Parse reads a manifest. It checks structure only; call Validate to parse
// every expression.
func Parse(source []byte) (*Manifest, error) {
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("manifest size %d exceeds maximum %d bytes", len(source), MaxSourceSize)}
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, &ParseError{Message: "empty manifest"}
	}

	root := raw.Content[0]
	var list *yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		list = root
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key := root.Content[i].Value
			if key != "equations" {
				return nil, &ParseError{Message: fmt.Sprintf("unknown top-level key '%s'", key)}
			}
			list = root.Content[i+1]
		}
		if list == nil {
			return nil, &ParseError{Message: "manifest must have 'equations'"}
		}
		if list.Kind != yaml.SequenceNode {
			return nil, &ParseError{Message: "'equations' must be a sequence"}
		}
	default:
		return nil, &ParseError{Message: "manifest must be a mapping or sequence"}
	}

	if len(list.Content) > MaxEquations {
		return nil, &ParseError{Message: fmt.Sprintf("%d equations exceeds maximum %d", len(list.Content), MaxEquations)}
	}

	m := &Manifest{}
	seen := make(map[string]bool)
	for i, item := range list.Content {
		def, err := parseDefinition(item, i)
		if err != nil {
			return nil, err
		}
		if def.ID != "" {
			if seen[def.ID] {
				return nil, &ParseError{Message: "duplicate id", Location: fmt.Sprintf("equation '%s'", def.ID)}
			}
			seen[def.ID] = true
		}
		m.Equations = append(m.Equations, def)
	}
	return m, nil
}

// parseDefinition parses one item of the equations sequence.
func parseDefinition(node *yaml.Node, index int) (Definition, error) {
	loc := fmt.Sprintf("equation #%d", index+1)

	if node.Kind == yaml.ScalarNode {
		if node.Value == "" {
			return Definition{}, &ParseError{Message: "expression is empty", Location: loc}
		}
		return Definition{Expression: node.Value}, nil
	}
	if node.Kind != yaml.MappingNode {
		return Definition{}, &ParseError{Message: "equation must be a string or mapping", Location: loc}
	}

	var def Definition
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return Definition{}, &ParseError{Message: fmt.Sprintf("'%s' must be a scalar", key), Location: loc}
		}

		switch key {
		case "id":
			def.ID = val.Value
			loc = fmt.Sprintf("equation '%s'", def.ID)
		case "expression":
			def.Expression = val.Value
		case "description":
			def.Description = val.Value
		default:
			return Definition{}, &ParseError{Message: fmt.Sprintf("unknown key '%s'", key), Location: loc}
		}
	}

	if def.Expression == "" {
		return Definition{}, &ParseError{Message: "equation must have an 'expression'", Location: loc}
	}
	return def, nil
}

// Validate parses every expression with set and reports the first failure.
func (m *Manifest) Validate(set ops.Set) error {
	for i, def := range m.Equations {
		loc := fmt.Sprintf("equation #%d", i+1)
		if def.ID != "" {
			loc = fmt.Sprintf("equation '%s'", def.ID)
		}
		if len(def.Expression) > expr.MaxExpressionLength {
			return &ParseError{
				Message:  fmt.Sprintf("expression exceeds maximum length of %d characters", expr.MaxExpressionLength),
				Location: loc,
			}
		}
		if _, err := expr.ParseWith(def.Expression, set); err != nil {
			return fmt.Errorf("%s: %w", loc, err)
		}
	}
	return nil
}

// Expressions returns the expressions in declaration order.
func (m *Manifest) Expressions() []string {
	out := make([]string, len(m.Equations))
	for i, def := range m.Equations {
		out[i] = def.Expression
	}
	return out
}
