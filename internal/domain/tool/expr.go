package tool

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// maxExpressionLength is the maximum allowed length for filter expressions.
const maxExpressionLength = 1024

// maxCostBudget is the CEL runtime cost limit for a single evaluation.
const maxCostBudget = 100_000

// ExprFilter is a compiled advanced filter expression over tool fields.
// Expressions see a `tool` map with the fields id, name, category, status,
// health, uptime_minutes, critical, and tags, e.g.:
//
//	tool.status == "running" && tool.uptime_minutes <= 60
//	tool.critical || "forensics" in tool.tags
type ExprFilter struct {
	prg cel.Program
}

// CompileExpr parses and type-checks a filter expression.
// The expression must evaluate to a boolean.
func CompileExpr(expression string) (*ExprFilter, error) {
	if len(expression) > maxExpressionLength {
		return nil, fmt.Errorf("expression exceeds %d characters", maxExpressionLength)
	}

	env, err := cel.NewEnv(
		cel.Variable("tool", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter environment: %w", err)
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation failed: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
	)
	if err != nil {
		return nil, fmt.Errorf("program construction failed: %w", err)
	}

	return &ExprFilter{prg: prg}, nil
}

// Match evaluates the expression against one tool.
// Evaluation errors (missing fields, cost overrun) count as no match.
func (f *ExprFilter) Match(t Tool) bool {
	out, _, err := f.prg.Eval(map[string]any{"tool": exprVars(t)})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// Apply returns the order-preserving subsequence of tools matching the
// expression.
func (f *ExprFilter) Apply(tools []Tool) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// exprVars flattens a tool into the variable map expressions evaluate over.
func exprVars(t Tool) map[string]any {
	uptime := -1
	if t.UptimeMinutes != nil {
		uptime = *t.UptimeMinutes
	}
	tags := make([]string, len(t.Tags))
	copy(tags, t.Tags)
	return map[string]any{
		"id":             t.ID,
		"name":           t.Name,
		"category":       t.Category,
		"status":         string(t.Status),
		"health":         string(t.Health),
		"uptime_minutes": uptime,
		"critical":       t.Critical,
		"tags":           tags,
	}
}
