package health

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestNewAggregator_Duplicate(t *testing.T) {
	_, err := NewAggregator(AggregatorConfig{}, fixed("a", Healthy("")), fixed("a", Healthy("")))
	if !errors.Is(err, ErrDuplicateChecker) {
		t.Errorf("NewAggregator() error = %v, want ErrDuplicateChecker", err)
	}
}

func TestNewAggregator_SkipsNil(t *testing.T) {
	agg, err := NewAggregator(AggregatorConfig{}, nil, fixed("a", Healthy("")), nil)
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}
	if got := agg.Names(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Names() = %v, want [a]", got)
	}
}

func TestAggregator_CheckAll(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		want     Status
	}{
		{name: "empty", want: StatusHealthy},
		{
			name:     "all healthy",
			checkers: []Checker{fixed("a", Healthy("")), fixed("b", Healthy(""))},
			want:     StatusHealthy,
		},
		{
			name:     "one degraded",
			checkers: []Checker{fixed("a", Healthy("")), fixed("b", Degraded(""))},
			want:     StatusDegraded,
		},
		{
			name:     "unhealthy wins",
			checkers: []Checker{fixed("a", Degraded("")), fixed("b", Unhealthy("", nil)), fixed("c", Healthy(""))},
			want:     StatusUnhealthy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := NewAggregator(AggregatorConfig{}, tt.checkers...)
			if err != nil {
				t.Fatalf("NewAggregator() error = %v", err)
			}
			report := agg.CheckAll(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %v, want %v", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checkers) {
				t.Errorf("len(Components) = %d, want %d", len(report.Components), len(tt.checkers))
			}
		})
	}
}

func TestAggregator_CheckAllTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := NewCheckerFunc("slow", func(context.Context) Result {
		<-release
		return Healthy("")
	})

	agg, err := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond}, slow, fixed("fast", Healthy("")))
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}
	report := agg.CheckAll(context.Background())

	if report.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", report.Status)
	}
	if r := report.Components["slow"]; !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("slow error = %v, want ErrCheckTimeout", r.Error)
	}
	if r := report.Components["fast"]; r.Status != StatusHealthy {
		t.Errorf("fast status = %v, want healthy", r.Status)
	}
}

func TestAggregator_CheckAllRunsConcurrently(t *testing.T) {
	const n = 4
	started := make(chan struct{}, n)
	gate := make(chan struct{})
	var checkers []Checker
	for _, name := range []string{"a", "b", "c", "d"} {
		checkers = append(checkers, NewCheckerFunc(name, func(context.Context) Result {
			started <- struct{}{}
			<-gate
			return Healthy("")
		}))
	}
	agg, err := NewAggregator(AggregatorConfig{Timeout: 5 * time.Second}, checkers...)
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}

	done := make(chan Report, 1)
	go func() { done <- agg.CheckAll(context.Background()) }()
	for range n {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("checks did not start concurrently")
		}
	}
	close(gate)

	if report := <-done; report.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", report.Status)
	}
}
