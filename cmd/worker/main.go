package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"docanalyzer/internal/bootstrap"
	"docanalyzer/internal/shared/config"
	"docanalyzer/internal/shared/metrics"
	"docanalyzer/internal/shared/telemetry"
	"docanalyzer/internal/workerproc"
)

const (
	defaultRegion         = "us-east-1"
	receiveCountAttribute = "ApproximateReceiveCount"
)

func main() {
	cfg := config.Load()
	if err := telemetry.Init(cfg.Env, cfg.LogLevel); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer telemetry.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	queueURL := strings.TrimSpace(cfg.SQSQueueURL)
	if queueURL == "" {
		log.Fatal("SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	region := cfg.AWSRegion
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	// The worker consumes the queue itself; never re-enqueue from here.
	cfg.QueueBackend = "sync"
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	healthSrv, stopHealth := serveHealth(cfg.WorkerHealthAddr)
	defer stopHealth()

	concurrency := max(1, cfg.QueueWorkers)
	visibility := int32(cfg.SQSVisibility / time.Second)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue_url":          queueURL,
		"concurrency":        concurrency,
		"visibility_seconds": visibility,
	})
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   visibility,
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName(receiveCountAttribute)},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ProcessTimeout)
				defer cancel()
				handleMessage(jobCtx, sqsClient, queueURL, app.Coordinator, m)
			}(msg)
		}
	}

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	telemetry.Info("worker.shutdown", map[string]any{"timeout": cfg.ShutdownTimeout.String()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(cfg.ShutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"message": "exiting with in-flight jobs"})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("worker.shutdown_failed", map[string]any{"error": err.Error()})
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// serveHealth exposes the grpc health protocol for orchestrator probes.
func serveHealth(addr string) (*health.Server, func()) {
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	if strings.TrimSpace(addr) == "" {
		return healthSrv, func() {}
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		telemetry.Warn("worker.health.listen_failed", map[string]any{"addr": addr, "error": err.Error()})
		return healthSrv, func() {}
	}
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	reflection.Register(srv)
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			telemetry.Error("worker.health.serve_failed", map[string]any{"error": err.Error()})
		}
	}()
	telemetry.Info("worker.health.listening", map[string]any{"addr": lis.Addr().String()})
	return healthSrv, srv.GracefulStop
}

func handleMessage(ctx context.Context, client sqsAPI, queueURL string, proc workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, decoded.DocumentID, decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.document.invalid_message", fields)
		metrics.IncWorkerJob(true)
		deleteMessage(ctx, client, queueURL, msg, decoded.DocumentID, decoded.RequestID)
		return
	}

	telemetry.Info("worker.document.received", baseFields(msg, decoded.DocumentID, decoded.RequestID))

	if err := workerproc.Process(ctx, proc, decoded); err != nil {
		fields := baseFields(msg, decoded.DocumentID, decoded.RequestID)
		fields["error"] = err.Error()
		metrics.IncWorkerJob(true)
		if workerproc.Unrecoverable(err) {
			telemetry.Error("worker.document.dropped", fields)
			deleteMessage(ctx, client, queueURL, msg, decoded.DocumentID, decoded.RequestID)
			return
		}
		telemetry.Error("worker.document.failed", fields)
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.DocumentID, decoded.RequestID) {
		telemetry.Info("worker.document.completed", baseFields(msg, decoded.DocumentID, decoded.RequestID))
		metrics.IncWorkerJob(false)
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, documentID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, documentID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.document.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, documentID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.document.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, documentID, requestID string) map[string]any {
	fields := map[string]any{
		"document_id":    documentID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes[receiveCountAttribute]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
