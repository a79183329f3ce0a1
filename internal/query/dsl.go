package query

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
)

// ParsedQuery holds a validated and parsed search expression.
type ParsedQuery struct {
	program *vm.Program
	node    ast.Node
	raw     string
}

// Node returns the AST root node.
func (pq *ParsedQuery) Node() ast.Node {
	return pq.node
}

// Raw returns the original expression string.
func (pq *ParsedQuery) Raw() string {
	return pq.raw
}

// SearchDSL parses and validates error-log search expressions like
// `processor contains "kafka" and message contains "timeout"`.
type SearchDSL struct {
	fields map[string]FieldDef
}

// NewSearchDSL creates a DSL parser with the given field definitions.
func NewSearchDSL(fields map[string]FieldDef) *SearchDSL {
	return &SearchDSL{fields: fields}
}

// Parse compiles and validates an expression string.
func (d *SearchDSL) Parse(expression string) (*ParsedQuery, error) {
	if expression == "" {
		return nil, fmt.Errorf("empty expression")
	}

	env := d.buildEnv()

	program, err := expr.Compile(
		expression,
		expr.Env(env),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	node := program.Node()

	if err := d.validateAST(&node); err != nil {
		return nil, err
	}

	return &ParsedQuery{
		program: program,
		node:    node,
		raw:     expression,
	}, nil
}

// buildEnv creates the environment for expr compilation. Field values
// are typed placeholders; the expression is never evaluated in Go, only
// type-checked and compiled to SQL.
func (d *SearchDSL) buildEnv() map[string]any {
	env := make(map[string]any)

	for name, field := range d.fields {
		switch field.Type {
		case FieldTypeString:
			env[name] = ""
		case FieldTypeInt:
			env[name] = 0
		case FieldTypeFloat:
			env[name] = 0.0
		case FieldTypeTime:
			env[name] = time.Time{}
		}
	}

	env["now"] = func() time.Time { return time.Now() }
	env["duration"] = func(s string) time.Duration {
		d, _ := time.ParseDuration(s)
		return d
	}

	env["contains"] = func(s, substr string) bool { return true }
	env["startsWith"] = func(s, prefix string) bool { return true }
	env["endsWith"] = func(s, suffix string) bool { return true }
	env["matches"] = func(s, pattern string) bool { return true }

	return env
}

// validateAST walks the AST to validate fields and operators.
func (d *SearchDSL) validateAST(node *ast.Node) error {
	v := &validationVisitor{fields: d.fields}
	ast.Walk(node, v)
	return v.err
}

// validationVisitor checks fields and operators in the AST.
type validationVisitor struct {
	fields map[string]FieldDef
	err    error
}

func (v *validationVisitor) Visit(node *ast.Node) {
	if v.err != nil {
		return
	}

	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if _, ok := v.fields[n.Value]; !ok {
			if !AllowedFunctions[n.Value] && !isBuiltinFunction(n.Value) {
				v.err = fmt.Errorf("unknown field: %s", n.Value)
			}
		}

	case *ast.BinaryNode:
		if ident, ok := n.Left.(*ast.IdentifierNode); ok {
			if field, ok := v.fields[ident.Value]; ok {
				if !field.IsOperatorAllowed(n.Operator) {
					v.err = fmt.Errorf("operator %q not allowed for field %q", n.Operator, ident.Value)
				}
			}
		}

	case *ast.MemberNode:
		v.err = fmt.Errorf("member access is not supported in search expressions")

	case *ast.CallNode:
		if ident, ok := n.Callee.(*ast.IdentifierNode); ok {
			if !AllowedFunctions[ident.Value] && !isBuiltinFunction(ident.Value) {
				v.err = fmt.Errorf("function %q is not allowed", ident.Value)
			}
		}
	}
}

// isBuiltinFunction checks if a function is a built-in expr function.
func isBuiltinFunction(name string) bool {
	builtins := map[string]bool{
		"len": true, "lower": true, "upper": true, "trim": true,
		"int": true, "float": true, "string": true, "bool": true,
	}
	return builtins[name]
}
