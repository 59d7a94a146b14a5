package cloudwatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"github.com/dreschagin/self-configuration/internal/domain/entity"
	"github.com/dreschagin/self-configuration/internal/domain/valueobject"
)

type fakePutMetricData struct {
	mu       sync.Mutex
	inputs   []*cloudwatch.PutMetricDataInput
	failures int
}

func (f *fakePutMetricData) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failures > 0 {
		f.failures--
		return nil, errors.New("throttled")
	}
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func (f *fakePutMetricData) datums() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0
	for _, input := range f.inputs {
		total += len(input.MetricData)
	}
	return total
}

func newTestPublisher(t *testing.T, client putMetricDataAPI, bufferSize int) *MetricsPublisher {
	t.Helper()
	cfg := MetricsPublisherConfig{
		Namespace:         "Test/Namespace",
		Region:            "us-east-1",
		DefaultDimensions: map[string]string{"Environment": "test"},
		BufferSize:        bufferSize,
		FlushInterval:     time.Hour,
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	p := newMetricsPublisher(client, cfg, nil)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestMapUnit(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected string
	}{
		{"percentage", "%", "Percent"},
		{"megabytes", "MB", "Megabytes"},
		{"milliseconds", "ms", "Milliseconds"},
		{"seconds", "s", "Seconds"},
		{"count", "count", "Count"},
		{"ratio", "ratio", "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mapUnit(tt.unit)
			if string(result) != tt.expected {
				t.Errorf("mapUnit(%q) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestSnapshotData(t *testing.T) {
	p := &MetricsPublisher{
		namespace:         "Test/Namespace",
		defaultDimensions: map[string]string{"Environment": "test"},
		storageResolution: 60,
	}

	snapshot := entity.MustSnapshot(250, 1800, 0.85, 0.005, 0.92)
	data := p.snapshotData(snapshot, valueobject.NewHealthScore(90))

	if len(data) != 6 {
		t.Fatalf("expected 6 datums, got %d", len(data))
	}

	wantNames := []string{"response_time_ms", "memory_usage_mb", "cache_hit_rate", "error_rate", "user_satisfaction", "health_score"}
	for i, datum := range data {
		if datum.MetricName == nil || *datum.MetricName != wantNames[i] {
			t.Errorf("datum %d: name = %v, want %s", i, datum.MetricName, wantNames[i])
		}
		if datum.StorageResolution == nil || *datum.StorageResolution != 60 {
			t.Errorf("datum %d: storage resolution not set", i)
		}
		if len(datum.Dimensions) != 2 {
			t.Errorf("datum %d: expected 2 dimensions, got %d", i, len(datum.Dimensions))
		}
	}

	if *data[0].Value != 250 || data[0].Unit != "Milliseconds" {
		t.Errorf("unexpected response time datum: %v %v", *data[0].Value, data[0].Unit)
	}
	if *data[5].Value != 90 {
		t.Errorf("unexpected health score datum: %v", *data[5].Value)
	}
}

func TestPublishSnapshotBuffersUntilFlush(t *testing.T) {
	client := &fakePutMetricData{}
	p := newTestPublisher(t, client, 100)
	snapshot := entity.MustSnapshot(180, 1800, 0.85, 0.005, 0.92)

	if err := p.PublishSnapshot(context.Background(), snapshot, valueobject.MaxHealthScore); err != nil {
		t.Fatalf("PublishSnapshot() error = %v", err)
	}
	if client.datums() != 0 {
		t.Fatal("datums should stay buffered below buffer size")
	}

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if client.datums() != 6 {
		t.Errorf("expected 6 datums after flush, got %d", client.datums())
	}
}

func TestPublishSnapshotAutoFlushesWithRetry(t *testing.T) {
	client := &fakePutMetricData{failures: 1}
	p := newTestPublisher(t, client, 6)

	snapshot := entity.MustSnapshot(180, 1800, 0.85, 0.005, 0.92)
	if err := p.PublishSnapshot(context.Background(), snapshot, valueobject.MaxHealthScore); err != nil {
		t.Fatalf("PublishSnapshot() error = %v", err)
	}
	if client.datums() != 6 {
		t.Errorf("expected auto flush after retry, got %d datums", client.datums())
	}
}

func TestPublishSnapshotRejectsNil(t *testing.T) {
	p := newTestPublisher(t, &fakePutMetricData{}, 10)
	if err := p.PublishSnapshot(context.Background(), nil, 0); err == nil {
		t.Error("expected error for nil snapshot")
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    MetricsPublisherConfig
		expectErr bool
	}{
		{"valid config", MetricsPublisherConfig{Namespace: "Test/Namespace", Region: "us-east-1"}, false},
		{"missing namespace", MetricsPublisherConfig{Region: "us-east-1"}, true},
		{"missing region", MetricsPublisherConfig{Namespace: "Test/Namespace"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			err := cfg.validate()
			if (err != nil) != tt.expectErr {
				t.Fatalf("validate() error = %v, expectErr %v", err, tt.expectErr)
			}
			if err == nil && (cfg.BufferSize != 100 || cfg.FlushInterval != 10*time.Second || cfg.StorageResolution != 60) {
				t.Errorf("defaults not applied: %+v", cfg)
			}
		})
	}
}
