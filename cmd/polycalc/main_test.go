package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/polycalc/pkg/types"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := execute(t, "parse", "(x+1)^2")
	require.NoError(t, err)
	assert.Equal(t, "x^2 + 2x + 1\n", out)

	out, err = execute(t, "parse", "--tree", "2x+3")
	require.NoError(t, err)
	assert.Equal(t, "((2 * x) + 3)\n", out)
}

func TestSolveCommand(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2x + 4 = 0", "x = -2.0\n"},
		{"x^2 = 1", "x1 = 1.0000, x2 = -1.0000\n"},
		{"x^2 + 1 = 0", "x = 0.0000 ± 1.0000i\n"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out, err := execute(t, "solve", tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSolveCommandErrors(t *testing.T) {
	_, err := execute(t, "solve", "x^3 = 1")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindUnsupported))
	assert.Equal(t, "only linear and quadratic equations are supported, got degree 3", errorMessage(err))

	_, err = execute(t, "solve", strings.Repeat("x+", 201)+"x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum length")
}

func TestEvalCommand(t *testing.T) {
	out, err := execute(t, "eval", "3x^2 - x + 5", "--x", "2")
	require.NoError(t, err)
	assert.Equal(t, "15.0\n", out)
}

func TestSampleCommand(t *testing.T) {
	out, err := execute(t, "sample", "x^2", "--from=-1", "--to=1", "--samples=3")
	require.NoError(t, err)
	assert.Equal(t, "-1\t1\n0\t0\n1\t1\n", out)

	_, err = execute(t, "sample", "x", "--from=1", "--to=1")
	assert.Error(t, err)
}

func TestMaxExponentFlag(t *testing.T) {
	_, err := execute(t, "parse", "--max-exponent", "4", "x^5")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindArithmetic))

	out, err := execute(t, "parse", "--max-exponent", "0", "x^70")
	require.NoError(t, err)
	assert.Equal(t, "x^70\n", out)
}

func TestMaxExponentEnv(t *testing.T) {
	t.Setenv("MAX_EXPONENT", "3")
	_, err := execute(t, "parse", "x^4")
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindArithmetic))
}

func TestBatchCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
equations:
  - id: line
    expression: 2x + 4 = 0
  - id: cubic
    expression: x^3 = 1
  - x^2 = 1
`), 0o644))

	out, err := execute(t, "batch", path, "--parallel", "2")
	require.Error(t, err)
	assert.Equal(t, "1 of 3 equations failed", err.Error())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "line: x = -2.0", lines[0])
	assert.Equal(t, "cubic: ERR: only linear and quadratic equations are supported, got degree 3", lines[1])
	assert.Equal(t, "#3: x1 = 1.0000, x2 = -1.0000", lines[2])
}

func TestBatchCommandOverLongExpression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equations.yaml")
	long := strings.Repeat("x+", 201) + "x = 0"
	require.NoError(t, os.WriteFile(path, []byte(`
equations:
  - id: long
    expression: `+long+`
  - id: line
    expression: 2x + 4 = 0
`), 0o644))

	out, err := execute(t, "batch", path)
	require.Error(t, err)
	assert.Equal(t, "1 of 2 equations failed", err.Error())

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "long: ERR: expression exceeds maximum length of 400 characters", lines[0])
	assert.Equal(t, "line: x = -2.0", lines[1])
}

func TestBatchCommandBadManifest(t *testing.T) {
	_, err := execute(t, "batch", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLeadingMinusAfterDoubleDash(t *testing.T) {
	out, err := execute(t, "--", "-x^2+4=0")
	require.NoError(t, err)
	assert.Equal(t, "x1 = -2.0000, x2 = 2.0000\n", out)

	out, err = execute(t, "parse", "--", "-2x")
	require.NoError(t, err)
	assert.Equal(t, "-2x\n", out)

	out, err = execute(t, "solve", "--", "-x^2+4=0")
	require.NoError(t, err)
	assert.Equal(t, "x1 = -2.0000, x2 = 2.0000\n", out)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "missing ')'", errorMessage(types.NewParseError("missing ')'", "EOF", 4)))
	assert.Equal(t, "plain", errorMessage(errors.New("plain")))
}

func TestRootDisplay(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"(x+1)(x-1)", "x^2 - 1\n"},
		{"2x + 4 = 0", "x = -2.0\n"},
		{"x/0", "ERR: division by zero\n"},
		{"x^3 = 1", "ERR: only linear and quadratic equations are supported, got degree 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out, err := execute(t, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}
