package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"docanalyzer/internal/bootstrap"
	"docanalyzer/internal/shared/config"
	"docanalyzer/internal/shared/server/respond"
	"docanalyzer/internal/shared/telemetry"
)

// proxy builds the router on first use. A failed build is retried by the next
// invocation instead of poisoning the execution environment.
type proxy struct {
	build func() (*gin.Engine, error)

	mu      sync.Mutex
	adapter *ginadapter.GinLambdaV2
}

func (p *proxy) router() (*ginadapter.GinLambdaV2, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adapter != nil {
		return p.adapter, nil
	}
	engine, err := p.build()
	if err != nil {
		return nil, err
	}
	p.adapter = ginadapter.NewV2(engine)
	return p.adapter, nil
}

func (p *proxy) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	adapter, err := p.router()
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error()})
		return unavailable(), nil
	}
	return adapter.ProxyWithContext(ctx, req)
}

func unavailable() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:    "service_unavailable",
		Message: "service is starting, retry shortly",
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json", "Retry-After": "1"},
	}
}

func buildRouter() (*gin.Engine, error) {
	cfg := config.Load()
	if err := telemetry.Init(cfg.Env, cfg.LogLevel); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return nil, err
	}
	return app.Router, nil
}

func main() {
	p := &proxy{build: buildRouter}
	lambda.Start(p.handle)
}
