package graph

import (
	"context"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
)

// Request is the standard GraphQL over HTTP body.
type Request struct {
	Query         string                 `json:"query" validate:"required"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

func Execute(ctx context.Context, schema graphql.Schema, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

// IsQuery reports whether the selected operation of the document is a query.
// Unparsable documents report false.
func IsQuery(query, operationName string) bool {
	op := selectOperation(query, operationName)
	return op != nil && op.Operation == ast.OperationTypeQuery
}

// OperationName is the explicit operation name, or the name of the only
// operation in the document. Anonymous operations have none.
func OperationName(query, operationName string) string {
	if operationName != "" {
		return operationName
	}

	op := selectOperation(query, "")
	if op == nil || op.Name == nil {
		return ""
	}
	return op.Name.Value
}

func selectOperation(query, operationName string) *ast.OperationDefinition {
	doc, err := parser.Parse(parser.ParseParams{Source: query})
	if err != nil {
		return nil
	}

	var selected *ast.OperationDefinition
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		if operationName == "" || (op.Name != nil && op.Name.Value == operationName) {
			if selected != nil && operationName == "" {
				// several operations need a name to pick one
				return nil
			}
			selected = op
		}
	}

	return selected
}
