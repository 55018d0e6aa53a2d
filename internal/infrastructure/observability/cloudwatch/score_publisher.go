package cloudwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/analytics-validator/internal/validation"
)

const (
	// CloudWatch limits
	maxMetricsPerRequest = 1000
	maxRetries           = 3
	initialBackoff       = 100 * time.Millisecond

	overallCheckName = "overall"
)

// ScorePublisherConfig holds configuration for CloudWatch score publishing.
type ScorePublisherConfig struct {
	Namespace         string            // CloudWatch namespace (e.g., "AnalyticsValidator/Checks")
	Region            string            // AWS region (e.g., "us-east-1")
	Endpoint          string            // Optional endpoint override (for LocalStack)
	AccessKeyID       string            // AWS access key
	SecretAccessKey   string            // AWS secret key
	DefaultDimensions map[string]string // Default dimensions added to all metrics
	BufferSize        int               // Buffer size before auto-flush
	FlushInterval     time.Duration     // Automatic flush interval
	StorageResolution int32             // Storage resolution in seconds (1 or 60)
}

// scoreSample is one datapoint extracted from a validation cycle.
type scoreSample struct {
	CheckName string
	Score     float64
	Status    string
	Timestamp time.Time
}

// ScorePublisher ships per-check validation scores to AWS CloudWatch so
// operators can alarm on score degradation.
// Implements validation.CycleListener.
type ScorePublisher struct {
	client            *cloudwatch.Client
	namespace         string
	defaultDimensions map[string]string
	storageResolution int32

	buffer     []scoreSample
	bufferSize int
	mu         sync.Mutex

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewScorePublisher creates a new CloudWatch score publisher.
func NewScorePublisher(ctx context.Context, cfg ScorePublisherConfig) (*ScorePublisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.StorageResolution != 1 && cfg.StorageResolution != 60 {
		cfg.StorageResolution = 60 // Default to standard resolution
	}

	// Build AWS config
	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	// Create CloudWatch client
	client := cloudwatch.NewFromConfig(awsCfg)

	p := &ScorePublisher{
		client:            client,
		namespace:         cfg.Namespace,
		defaultDimensions: cfg.DefaultDimensions,
		storageResolution: cfg.StorageResolution,
		buffer:            make([]scoreSample, 0, cfg.BufferSize),
		bufferSize:        cfg.BufferSize,
		flushTicker:       time.NewTicker(cfg.FlushInterval),
		stopCh:            make(chan struct{}),
	}

	// Start background flush goroutine
	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

// OnCycleResult extracts one sample per check plus the overall score and
// buffers them for batch delivery.
func (p *ScorePublisher) OnCycleResult(ctx context.Context, result validation.CycleResult) {
	samples := extractSamples(result)

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sample := range samples {
		p.buffer = append(p.buffer, sample)

		// Auto-flush if buffer is full
		if len(p.buffer) >= p.bufferSize {
			if err := p.flushBufferUnsafe(ctx); err != nil {
				// Samples stay buffered and retry on the next flush tick
				return
			}
		}
	}
}

// Flush forces immediate publication of all buffered samples.
func (p *ScorePublisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flushBufferUnsafe(ctx)
}

// Close stops the background flush goroutine and flushes remaining samples.
func (p *ScorePublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.flushTicker.Stop()
	p.wg.Wait()

	return p.Flush(ctx)
}

// flushLoop runs in a background goroutine and flushes the buffer periodically.
func (p *ScorePublisher) flushLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := p.Flush(ctx); err != nil {
				// Log error but don't fail - we'll retry on next tick
				_ = err
			}
			cancel()
		case <-p.stopCh:
			return
		}
	}
}

// flushBufferUnsafe flushes the buffer without locking (caller must hold lock).
func (p *ScorePublisher) flushBufferUnsafe(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	// Convert all buffered samples to CloudWatch MetricDatum
	data := make([]types.MetricDatum, 0, len(p.buffer))
	for _, sample := range p.buffer {
		data = append(data, p.convertToDatum(sample))
	}

	// Publish in chunks (CloudWatch limit: 1000 metrics/request)
	for i := 0; i < len(data); i += maxMetricsPerRequest {
		end := i + maxMetricsPerRequest
		if end > len(data) {
			end = len(data)
		}

		chunk := data[i:end]
		if err := p.publishBatchWithRetry(ctx, chunk); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}

	// Clear buffer
	p.buffer = p.buffer[:0]

	return nil
}

// publishBatchWithRetry publishes a batch of samples with exponential backoff retry.
func (p *ScorePublisher) publishBatchWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		input := &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: data,
		}

		_, err := p.client.PutMetricData(ctx, input)
		if err == nil {
			return nil
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

// convertToDatum converts a score sample to CloudWatch MetricDatum.
func (p *ScorePublisher) convertToDatum(sample scoreSample) types.MetricDatum {
	// Build dimensions
	dimensions := make([]types.Dimension, 0)

	// Add default dimensions
	for key, value := range p.defaultDimensions {
		dimensions = append(dimensions, types.Dimension{
			Name:  aws.String(key),
			Value: aws.String(value),
		})
	}

	// Add sample-specific dimensions
	dimensions = append(dimensions,
		types.Dimension{
			Name:  aws.String("Check"),
			Value: aws.String(sample.CheckName),
		},
		types.Dimension{
			Name:  aws.String("Status"),
			Value: aws.String(sample.Status),
		},
	)

	datum := types.MetricDatum{
		MetricName: aws.String("ValidationScore"),
		Value:      aws.Float64(sample.Score),
		Unit:       types.StandardUnitNone,
		Timestamp:  aws.Time(sample.Timestamp),
		Dimensions: dimensions,
	}

	// Set storage resolution (high-resolution metrics)
	if p.storageResolution > 0 {
		datum.StorageResolution = aws.Int32(p.storageResolution)
	}

	return datum
}

// extractSamples flattens a cycle result into per-check datapoints plus the
// overall score.
func extractSamples(result validation.CycleResult) []scoreSample {
	samples := make([]scoreSample, 0, len(result.Checks)+1)

	samples = append(samples, scoreSample{
		CheckName: overallCheckName,
		Score:     result.OverallScore,
		Status:    string(result.Status),
		Timestamp: result.Timestamp,
	})

	for name, check := range result.Checks {
		status := "failed"
		if check.Passed {
			status = "passed"
		}
		samples = append(samples, scoreSample{
			CheckName: name,
			Score:     check.Score.Raw(),
			Status:    status,
			Timestamp: result.Timestamp,
		})
	}

	return samples
}

// buildAWSConfig creates an AWS config with credentials.
func buildAWSConfig(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey string) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}

	// Add static credentials if provided
	if accessKeyID != "" && secretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}

	// Override endpoint if specified (for LocalStack testing)
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	return cfg, nil
}
