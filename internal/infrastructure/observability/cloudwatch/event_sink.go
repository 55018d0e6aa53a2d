package cloudwatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	applicationPort "github.com/dreschagin/analytics-validator/internal/application/port"
)

const (
	// CloudWatch Logs limits
	maxLogEventsPerRequest = 10000
	maxLogEventSize        = 256000 // 256 KB
)

// EventSinkConfig holds configuration for CloudWatch event publishing.
type EventSinkConfig struct {
	LogGroupName    string // CloudWatch log group name
	LogStreamName   string // CloudWatch log stream name
	Region          string // AWS region
	Endpoint        string // Optional endpoint override (for LocalStack)
	AccessKeyID     string // AWS access key
	SecretAccessKey string // AWS secret key
	BufferSize      int    // Buffer size before auto-flush
	FlushInterval   time.Duration
	AutoCreate      bool // Automatically create log group/stream if missing
}

// EventSink publishes validation lifecycle events to AWS CloudWatch Logs.
// Implements port.ValidationEventSink.
type EventSink struct {
	client        *cloudwatchlogs.Client
	logGroupName  string
	logStreamName string
	autoCreate    bool

	buffer     []applicationPort.ValidationEvent
	bufferSize int
	mu         sync.Mutex

	sequenceToken *string // CloudWatch requires sequence tokens for ordering

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewEventSink creates a new CloudWatch event sink.
func NewEventSink(ctx context.Context, cfg EventSinkConfig) (*EventSink, error) {
	if cfg.LogGroupName == "" {
		return nil, fmt.Errorf("log group name is required")
	}
	if cfg.LogStreamName == "" {
		return nil, fmt.Errorf("log stream name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	// Build AWS config
	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	// Create CloudWatch Logs client
	client := cloudwatchlogs.NewFromConfig(awsCfg)

	s := &EventSink{
		client:        client,
		logGroupName:  cfg.LogGroupName,
		logStreamName: cfg.LogStreamName,
		autoCreate:    cfg.AutoCreate,
		buffer:        make([]applicationPort.ValidationEvent, 0, cfg.BufferSize),
		bufferSize:    cfg.BufferSize,
		flushTicker:   time.NewTicker(cfg.FlushInterval),
		stopCh:        make(chan struct{}),
	}

	// Ensure log group and stream exist if auto-create is enabled
	if cfg.AutoCreate {
		if err := s.ensureLogGroupAndStream(ctx); err != nil {
			return nil, fmt.Errorf("failed to create log group/stream: %w", err)
		}
	}

	// Start background flush goroutine
	s.wg.Add(1)
	go s.flushLoop()

	return s, nil
}

// Publish buffers a single validation event for efficient batch delivery.
func (s *EventSink) Publish(ctx context.Context, event applicationPort.ValidationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, event)

	// Auto-flush if buffer is full
	if len(s.buffer) >= s.bufferSize {
		if err := s.flushBufferUnsafe(ctx); err != nil {
			return fmt.Errorf("failed to flush buffer: %w", err)
		}
	}

	return nil
}

// Flush forces immediate publication of all buffered events.
func (s *EventSink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and flushes remaining events.
func (s *EventSink) Close(ctx context.Context) error {
	close(s.stopCh)
	s.flushTicker.Stop()
	s.wg.Wait()

	return s.Flush(ctx)
}

// flushLoop runs in a background goroutine and flushes the buffer periodically.
func (s *EventSink) flushLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := s.Flush(ctx); err != nil {
				// Log error but don't fail - we'll retry on next tick
				_ = err
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
func (s *EventSink) flushBufferUnsafe(ctx context.Context) error {
	if len(s.buffer) == 0 {
		return nil
	}

	// Sort by timestamp (CloudWatch Logs requirement)
	sort.Slice(s.buffer, func(i, j int) bool {
		return s.buffer[i].Timestamp.Before(s.buffer[j].Timestamp)
	})

	// Convert to CloudWatch log events
	events := make([]types.InputLogEvent, 0, len(s.buffer))
	for _, event := range s.buffer {
		logEvent, err := s.convertToLogEvent(event)
		if err != nil {
			// Skip malformed entries but don't fail the entire batch
			continue
		}
		events = append(events, logEvent)
	}

	if len(events) == 0 {
		s.buffer = s.buffer[:0]
		return nil
	}

	// Publish in chunks (CloudWatch Logs limit: 10,000 events/request)
	for i := 0; i < len(events); i += maxLogEventsPerRequest {
		end := i + maxLogEventsPerRequest
		if end > len(events) {
			end = len(events)
		}

		chunk := events[i:end]
		if err := s.publishLogEventsWithRetry(ctx, chunk); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	// Clear buffer
	s.buffer = s.buffer[:0]

	return nil
}

// publishLogEventsWithRetry publishes log events with retry logic.
func (s *EventSink) publishLogEventsWithRetry(ctx context.Context, events []types.InputLogEvent) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		input := &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(s.logGroupName),
			LogStreamName: aws.String(s.logStreamName),
			LogEvents:     events,
			SequenceToken: s.sequenceToken,
		}

		output, err := s.client.PutLogEvents(ctx, input)
		if err == nil {
			// Update sequence token for next request
			s.sequenceToken = output.NextSequenceToken
			return nil
		}

		// Handle InvalidSequenceTokenException by retrying with the expected token
		var invalidSeqErr *types.InvalidSequenceTokenException
		if ok := attemptErrorAs(err, &invalidSeqErr); ok {
			s.sequenceToken = invalidSeqErr.ExpectedSequenceToken
			// Retry immediately with correct token
			continue
		}

		lastErr = err

		// Exponential backoff before retry
		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// convertToLogEvent converts a ValidationEvent to CloudWatch InputLogEvent.
func (s *EventSink) convertToLogEvent(event applicationPort.ValidationEvent) (types.InputLogEvent, error) {
	// Build structured JSON log
	logData := map[string]interface{}{
		"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
		"event_type": event.EventType,
		"severity":   string(event.Severity),
		"service":    event.Service,
	}

	// Add metadata if present
	if len(event.Metadata) > 0 {
		logData["metadata"] = event.Metadata
	}

	messageJSON, err := json.Marshal(logData)
	if err != nil {
		return types.InputLogEvent{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	// Truncate if exceeds CloudWatch limit
	message := string(messageJSON)
	if len(message) > maxLogEventSize {
		message = message[:maxLogEventSize-3] + "..."
	}

	return types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(event.Timestamp.UnixMilli()),
	}, nil
}

// ensureLogGroupAndStream creates the log group and stream if they don't exist.
func (s *EventSink) ensureLogGroupAndStream(ctx context.Context) error {
	// Create log group
	_, err := s.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(s.logGroupName),
	})
	if err != nil {
		// Ignore error if log group already exists
		var alreadyExists *types.ResourceAlreadyExistsException
		if !attemptErrorAs(err, &alreadyExists) {
			return fmt.Errorf("failed to create log group: %w", err)
		}
	}

	// Create log stream
	_, err = s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(s.logGroupName),
		LogStreamName: aws.String(s.logStreamName),
	})
	if err != nil {
		// Ignore error if log stream already exists
		var alreadyExists *types.ResourceAlreadyExistsException
		if !attemptErrorAs(err, &alreadyExists) {
			return fmt.Errorf("failed to create log stream: %w", err)
		}
	}

	return nil
}

// attemptErrorAs is a helper for error type assertion that works with AWS SDK v2 errors.
func attemptErrorAs(err error, target interface{}) bool {
	if err == nil {
		return false
	}
	// Simple type assertion - AWS SDK v2 errors can be checked directly
	switch v := target.(type) {
	case **types.InvalidSequenceTokenException:
		if e, ok := err.(*types.InvalidSequenceTokenException); ok {
			*v = e
			return true
		}
	case **types.ResourceAlreadyExistsException:
		if e, ok := err.(*types.ResourceAlreadyExistsException); ok {
			*v = e
			return true
		}
	}
	return false
}
