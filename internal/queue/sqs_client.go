package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"docanalyzer/internal/shared/telemetry"
)

const defaultSQSRegion = "us-east-1"

// Message attribute names, readable without decoding the body.
const (
	AttrRequestID = "requestId"
	AttrVersion   = "version"
)

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient publishes document messages to an SQS queue. FIFO queues are
// grouped by document so two runs of the same document never overlap.
type SQSClient struct {
	client   sqsSender
	queueURL string
	fifo     bool
}

// NewSQSClient constructs an SQS-backed queue client.
func NewSQSClient(ctx context.Context, region, queueURL string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, errors.New("SQS_QUEUE_URL is required")
	}
	if strings.TrimSpace(region) == "" {
		region = defaultSQSRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newSQSClient(sqs.NewFromConfig(cfg), queueURL), nil
}

func newSQSClient(client sqsSender, queueURL string) *SQSClient {
	return &SQSClient{client: client, queueURL: queueURL, fifo: strings.HasSuffix(queueURL, ".fifo")}
}

// Send publishes msg and returns once SQS has accepted it.
func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	if msg.DocumentID == "" {
		return errors.New("sqs send: document id is required")
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(payload)),
		MessageAttributes: messageAttributes(msg),
	}
	if s.fifo {
		input.MessageGroupId = aws.String(msg.DocumentID)
		input.MessageDeduplicationId = aws.String(uuid.NewString())
	}

	out, err := s.client.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	telemetry.Debug("queue.sqs.sent", map[string]any{
		"document_id": msg.DocumentID,
		"request_id":  msg.RequestID,
		"message_id":  aws.ToString(out.MessageId),
	})
	return nil
}

func messageAttributes(msg Message) map[string]sqstypes.MessageAttributeValue {
	attrs := map[string]sqstypes.MessageAttributeValue{
		AttrVersion: {
			DataType:    aws.String("Number"),
			StringValue: aws.String(strconv.Itoa(msg.Version)),
		},
	}
	if msg.RequestID != "" {
		attrs[AttrRequestID] = sqstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(msg.RequestID),
		}
	}
	return attrs
}

var _ Client = (*SQSClient)(nil)
