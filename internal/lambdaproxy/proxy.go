// Package lambdaproxy serves API Gateway proxy events through the gin engine,
// so the Lambda deployment runs the same router as the HTTP server.
package lambdaproxy

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
)

type Adapter struct {
	gin *ginadapter.GinLambda
}

func New(engine *gin.Engine) *Adapter {
	return &Adapter{gin: ginadapter.New(engine)}
}

// HandleRequest runs the event through the engine. Events that cannot be
// turned into an HTTP request (e.g. a malformed base64 body) get a 400
// instead of a Lambda invocation error.
func (a *Adapter) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp, err := a.gin.ProxyWithContext(ctx, req)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"INVALID_REQUEST"}`,
		}, nil
	}
	return resp, nil
}
