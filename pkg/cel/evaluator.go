package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"labelbus/pkg/models"
)

// Evaluator compiles filter expressions over messages. Expressions see the
// variables level, labels, value, timestamp and id.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("level", cel.IntType),
		cel.Variable("labels", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("value", cel.DynType),
		cel.Variable("timestamp", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateFilterExpression(expression string) error {
	_, err := e.compile(expression)
	return err
}

// Compile type-checks expression and prepares it for repeated evaluation.
func (e *Evaluator) Compile(expression string) (*Expression, error) {
	ast, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Expression{source: expression, program: program}, nil
}

func (e *Evaluator) compile(expression string) (*cel.Ast, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("filter expression must return bool, got %v", ast.OutputType())
	}

	return ast, nil
}

type Expression struct {
	source  string
	program cel.Program
}

func (x *Expression) Evaluate(ctx context.Context, msg *models.Message) (bool, error) {
	labels := map[string]interface{}(msg.Labels)
	if labels == nil {
		labels = map[string]interface{}{}
	}

	vars := map[string]interface{}{
		"id":        msg.ID,
		"level":     msg.LogLevel,
		"labels":    labels,
		"value":     msg.Value,
		"timestamp": msg.Timestamp,
	}

	result, _, err := x.program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func (x *Expression) String() string {
	return x.source
}
