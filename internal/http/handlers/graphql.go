package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/geocoder89/fraghub/internal/graph"
	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
)

// CtxOperationName is the gin context key the request log reads the GraphQL
// operation name from.
const CtxOperationName = "operation_name"

type GraphQLHandler struct {
	schema graphql.Schema
}

func NewGraphQLHandler(schema graphql.Schema) *GraphQLHandler {
	return &GraphQLHandler{schema: schema}
}

// Post executes any operation. Resolver failures travel in the errors list
// of a 200 response.
func (h *GraphQLHandler) Post(ctx *gin.Context) {
	var req graph.Request

	if !BindJSON(ctx, &req) {
		return
	}
	tagOperation(ctx, req)

	res := graph.Execute(ctx.Request.Context(), h.schema, req)
	ctx.JSON(http.StatusOK, res)
}

// Get executes read-only queries from the URL and serves the GraphiQL page
// to browsers that ask without a query.
func (h *GraphQLHandler) Get(ctx *gin.Context) {
	query := ctx.Query("query")

	if query == "" {
		if strings.Contains(ctx.GetHeader("Accept"), "text/html") {
			GraphiQL(ctx)
			return
		}
		RespondBadRequest(ctx, "Missing query", nil)
		return
	}

	req := graph.Request{Query: query, OperationName: ctx.Query("operationName")}
	tagOperation(ctx, req)

	if raw := ctx.Query("variables"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
			RespondBadRequest(ctx, "Variables must be a JSON object", gin.H{"json": "invalid_json_syntax"})
			return
		}
	}

	if !graph.IsQuery(req.Query, req.OperationName) {
		RespondMethodNotAllowed(ctx, "Only queries can be sent with GET")
		return
	}

	res := graph.Execute(ctx.Request.Context(), h.schema, req)
	RespondJSONWithETag(ctx, http.StatusOK, res)
}

func tagOperation(ctx *gin.Context, req graph.Request) {
	if name := graph.OperationName(req.Query, req.OperationName); name != "" {
		ctx.Set(CtxOperationName, name)
	}
}
