package observe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name: "valid minimal",
			cfg:  Config{ServiceName: "gridops"},
		},
		{
			name: "invalid tracing exporter",
			cfg: Config{
				ServiceName: "gridops",
				Tracing:     TracingConfig{Enabled: true, Exporter: "carrier-pigeon"},
			},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name: "invalid sample pct",
			cfg: Config{
				ServiceName: "gridops",
				Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5},
			},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name: "invalid metrics exporter",
			cfg: Config{
				ServiceName: "gridops",
				Metrics:     MetricsConfig{Enabled: true, Exporter: "graphite"},
			},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name: "invalid log level",
			cfg: Config{
				ServiceName: "gridops",
				Logging:     LoggingConfig{Enabled: true, Level: "loud"},
			},
			wantErr: ErrInvalidLogLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "gridops"})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}
	defer obs.Shutdown(context.Background())

	if obs.Tracer() == nil {
		t.Error("Tracer() should return a noop tracer, not nil")
	}
	if obs.Meter() == nil {
		t.Error("Meter() should return a noop meter, not nil")
	}
	if obs.Metrics() != nil {
		t.Error("Metrics() should be nil when metrics are disabled")
	}
	if obs.Logger() == nil {
		t.Error("Logger() should return a noop logger, not nil")
	}
}

func TestNewObserver_MetricsEnabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "gridops",
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}
	defer obs.Shutdown(context.Background())

	m := obs.Metrics()
	if m == nil {
		t.Fatal("Metrics() should be non-nil when metrics are enabled")
	}

	// Recording must not panic.
	ctx := context.Background()
	m.RecordStoreCall(ctx, "batch_get", 25*time.Millisecond, nil)
	m.RecordStoreCall(ctx, "batch_update", 40*time.Millisecond, errors.New("boom"))
	m.RecordCacheAccess(ctx, true)
	m.RecordCacheAccess(ctx, false)
	m.RecordEvictions(ctx, 3)
	m.RecordRateWait(ctx, 120*time.Millisecond)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	// A nil receiver records nothing and must not panic.
	m.RecordStoreCall(ctx, "batch_get", time.Millisecond, nil)
	m.RecordCacheAccess(ctx, true)
	m.RecordEvictions(ctx, 1)
	m.RecordRateWait(ctx, time.Millisecond)
}

func TestOpMeta_SpanName(t *testing.T) {
	meta := OpMeta{Component: "store", Op: "batch_get"}
	if got := meta.SpanName(); got != "grid.store.batch_get" {
		t.Errorf("SpanName() = %q, want grid.store.batch_get", got)
	}
}

func TestTracer_StartEndSpan(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "gridops",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
	})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}
	defer obs.Shutdown(context.Background())

	tracer := obs.Tracer()
	ctx, span := tracer.StartSpan(context.Background(), OpMeta{Component: "store", Op: "batch_get"})
	if ctx == nil || span == nil {
		t.Fatal("StartSpan returned nil ctx or span")
	}
	tracer.EndSpan(span, nil)

	_, span = tracer.StartSpan(context.Background(), OpMeta{Component: "store", Op: "batch_update"})
	tracer.EndSpan(span, errors.New("write failed"))
}
