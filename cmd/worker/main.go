package main

import (
	"context"
	"errors"
	"log"
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

	"traveldocs-backend/internal/bootstrap"
	"traveldocs-backend/internal/queue"
	"traveldocs-backend/internal/shared/config"
	"traveldocs-backend/internal/shared/metrics"
	"traveldocs-backend/internal/shared/telemetry"
	"traveldocs-backend/internal/workerproc"
)

const defaultSQSRegion = "us-east-1"

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.BuildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("build object store: %v", err)
	}

	switch cfg.QueueBackend {
	case "nats":
		runNATS(ctx, cfg, store)
	case "sqs":
		runSQS(ctx, cfg, store)
	default:
		log.Fatal("QUEUE_BACKEND must be sqs or nats")
	}
}

func runNATS(ctx context.Context, cfg config.Config, store workerproc.Deleter) {
	client, err := queue.NewNATSClient(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer client.Close()

	log.Printf("worker started backend=nats subject=%s", cfg.NATSSubject)
	err = client.Consume(ctx, func(ctx context.Context, body []byte) {
		// Core NATS has no redelivery; a failed delete is logged and counted only.
		process(ctx, store, string(body), map[string]any{"backend": "nats"})
	})
	if err != nil {
		log.Fatalf("nats consume: %v", err)
	}
}

func runSQS(ctx context.Context, cfg config.Config, store workerproc.Deleter) {
	queueURL := strings.TrimSpace(cfg.SQSQueueURL)
	if queueURL == "" {
		log.Fatal("SQS_QUEUE_URL is required")
	}
	region := cfg.AWSRegion
	if region == "" {
		region = defaultSQSRegion
	}

	visibilitySeconds := int(cfg.SQSVisibilityTimeout / time.Second)
	concurrency := cfg.WorkerConcurrency
	shutdownTimeout := cfg.WorkerShutdownTimeout

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	sem := make(chan struct{}, max(1, concurrency))
	var wg sync.WaitGroup

	log.Printf("worker started backend=sqs queue=%s concurrency=%d visibility=%ds", queueURL, concurrency, visibilitySeconds)

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
			VisibilityTimeout:   int32(visibilitySeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			log.Printf("receive message: %v", err)
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
				handleMessage(ctx, sqsClient, queueURL, store, m)
			}(msg)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight jobs", shutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight jobs")
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Outcome of one cleanup message.
type outcome int

const (
	outcomeDone outcome = iota
	// outcomeDrop means the payload can never succeed.
	outcomeDrop
	outcomeRetry
)

// process runs one message through workerproc and records its status.
func process(ctx context.Context, store workerproc.Deleter, body string, fields map[string]any) outcome {
	msg, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		var missing workerproc.ErrMissingStorageKey
		if errors.As(err, &missing) {
			fields["request_id"] = missing.RequestID
		}
		telemetry.Error("worker.cleanup.invalid_message", fields)
		metrics.IncCleanupJob("dropped")
		return outcomeDrop
	}

	fields["storage_key"] = msg.StorageKey
	fields["document_id"] = msg.DocumentID
	if strings.TrimSpace(msg.RequestID) != "" {
		fields["request_id"] = msg.RequestID
	}
	telemetry.Info("worker.cleanup.received", fields)

	if err := workerproc.Process(ctx, store, msg); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.cleanup.failed", fields)
		metrics.IncCleanupJob("failed")
		return outcomeRetry
	}

	telemetry.Info("worker.cleanup.completed", fields)
	metrics.IncCleanupJob("completed")
	return outcomeDone
}

func handleMessage(ctx context.Context, client sqsAPI, queueURL string, store workerproc.Deleter, msg sqstypes.Message) {
	fields := baseFields(msg)
	if process(ctx, store, aws.ToString(msg.Body), fields) == outcomeRetry {
		// Left on the queue; SQS redelivers after the visibility timeout.
		return
	}
	deleteMessage(ctx, client, queueURL, msg)
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.cleanup.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg)
		fields["error"] = err.Error()
		telemetry.Error("worker.cleanup.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message) map[string]any {
	return map[string]any{
		"backend":        "sqs",
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
