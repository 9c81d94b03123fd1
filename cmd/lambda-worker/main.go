package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"docanalyzer/internal/bootstrap"
	"docanalyzer/internal/shared/config"
	"docanalyzer/internal/shared/metrics"
	"docanalyzer/internal/shared/telemetry"
	"docanalyzer/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.Env, cfg.LogLevel); err != nil {
		initErr = err
		return
	}
	if err := cfg.Validate(); err != nil {
		initErr = err
		return
	}
	cfg.QueueBackend = "sync"
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return handleBatch(ctx, app.Coordinator, event), nil
}

// handleBatch reports only retryable failures so malformed messages and
// deleted documents leave the queue.
func handleBatch(ctx context.Context, proc workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		err := workerproc.HandleMessage(ctx, proc, record.Body)
		if err == nil {
			metrics.IncWorkerJob(false)
			continue
		}
		metrics.IncWorkerJob(true)
		fields := map[string]any{"sqs_message_id": record.MessageId, "error": err.Error()}
		if workerproc.Unrecoverable(err) {
			telemetry.Error("lambda.document.dropped", fields)
			continue
		}
		telemetry.Error("lambda.document.failed", fields)
		failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
