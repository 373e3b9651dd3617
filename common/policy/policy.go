package policy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
)

// ErrRejected is returned when a submission does not satisfy the policy
var ErrRejected = errors.New("submission rejected by policy")

// Policy is an admission rule written in CEL. The expression sees the
// submission as `artifact`, a map keyed by its JSON field names, and must
// evaluate to a bool. For example:
//
//	!has(artifact.to_year) || artifact.to_year >= artifact.from_year
type Policy struct {
	expr string
	prg  cel.Program
}

// Compile parses expr. An empty expression admits everything.
func Compile(expr string) (*Policy, error) {
	if expr == "" {
		return &Policy{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("artifact", cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("CEL policy must return bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Policy{expr: expr, prg: prg}, nil
}

// Expression returns the source expression
func (p *Policy) Expression() string {
	return p.expr
}

// Admit evaluates the policy against submission. It returns an error
// wrapping ErrRejected when the expression is false or cannot be evaluated
// against this submission.
func (p *Policy) Admit(submission any) error {
	if p.prg == nil {
		return nil
	}

	input, err := toMap(submission)
	if err != nil {
		return fmt.Errorf("failed to prepare policy input: %w", err)
	}

	out, _, err := p.prg.Eval(map[string]any{"artifact": input})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return fmt.Errorf("%w: policy returned %T", ErrRejected, out.Value())
	}
	if !allowed {
		return ErrRejected
	}

	return nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
