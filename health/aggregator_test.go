package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func staticChecker(name string, result Result) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) Result { return result })
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register("a", staticChecker("a", Healthy("fine")))
	agg.Register("b", staticChecker("b", Degraded("meh")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results["a"].Status != StatusHealthy || results["b"].Status != StatusDegraded {
		t.Errorf("results = %+v", results)
	}
	if results["a"].Duration <= 0 {
		t.Error("duration not recorded")
	}
}

func TestAggregator_OverallStatus(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})

	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{name: "empty", results: map[string]Result{}, want: StatusHealthy},
		{
			name:    "all healthy",
			results: map[string]Result{"a": Healthy(""), "b": Healthy("")},
			want:    StatusHealthy,
		},
		{
			name:    "one degraded",
			results: map[string]Result{"a": Healthy(""), "b": Degraded("")},
			want:    StatusDegraded,
		},
		{
			name:    "unhealthy wins",
			results: map[string]Result{"a": Degraded(""), "b": Unhealthy("", ErrCheckFailed)},
			want:    StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_CheckByName(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register("cache", staticChecker("cache", Healthy("ok")))

	result, err := agg.Check(context.Background(), "cache")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Status != StatusHealthy {
		t.Errorf("status = %v", result.Status)
	}

	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register("slow", NewCheckerFunc("slow", func(ctx context.Context) Result {
		select {
		case <-time.After(time.Second):
			return Healthy("eventually")
		case <-ctx.Done():
			return Unhealthy("canceled", ctx.Err())
		}
	}))

	results := agg.CheckAll(context.Background())
	if results["slow"].Status != StatusUnhealthy {
		t.Errorf("slow check status = %v, want unhealthy", results["slow"].Status)
	}
	if !errors.Is(results["slow"].Error, ErrCheckTimeout) && results["slow"].Error == nil {
		t.Errorf("slow check error = %v", results["slow"].Error)
	}
}

func TestAggregator_RegistrationOrder(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register("b", staticChecker("b", Healthy("")))
	agg.Register("a", staticChecker("a", Healthy("")))
	agg.Register("b", staticChecker("b", Degraded(""))) // replace, keeps slot

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Errorf("names = %v", names)
	}
}
