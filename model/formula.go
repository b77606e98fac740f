package model

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// A Formula is a compiled numeric expression over a fixed set of named
// variables. Evaluation failures are reported as errors and never panic; the
// simulation treats a failing formula as "feature disabled".
type Formula struct {
	src  string
	prog *vm.Program
}

// CompileFormula compiles src against the given variable names.
func CompileFormula(src string, vars ...string) (*Formula, error) {
	env := make(map[string]any, len(vars))
	for _, v := range vars {
		env[v] = float64(0)
	}

	prog, err := expr.Compile(src, expr.Env(env), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("formula %q: %w", src, err)
	}

	return &Formula{src: src, prog: prog}, nil
}

// Eval runs the formula with the given variable values.
func (f *Formula) Eval(env map[string]any) (float64, error) {
	out, err := expr.Run(f.prog, env)
	if err != nil {
		return 0, fmt.Errorf("formula %q: %w", f.src, err)
	}
	return out.(float64), nil
}

func (f *Formula) String() string {
	return f.src
}
