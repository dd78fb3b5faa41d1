package scoring

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{0.123456789, 5, 0.12346},
		{1, 5, 1},
		{0.5, 0, 1},
		{0.000004, 5, 0},
		{0.333333333, 2, 0.33},
	}
	for _, tt := range tests {
		if got := Round(tt.v, tt.places); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
	if got := Round(math.Inf(1), 5); !math.IsInf(got, 1) {
		t.Errorf("Round(+Inf) = %v, want +Inf", got)
	}
}

func TestScoredRepository_Rounded(t *testing.T) {
	s := ScoredRepository{
		Score: 0.6666666666,
		Breakdown: Breakdown{
			NormalizedStars: 0.1234567,
			NormalizedForks: 0.7654321,
			RecencyScore:    0.9999999,
			Weights:         Weights{Stars: 0.5 / 1.3, Forks: 0.3 / 1.3, Recency: 0.5 / 1.3},
		},
	}
	r := s.Rounded()
	if r.Score != 0.66667 {
		t.Errorf("Score = %v, want 0.66667", r.Score)
	}
	if r.Breakdown.NormalizedStars != 0.12346 || r.Breakdown.NormalizedForks != 0.76543 || r.Breakdown.RecencyScore != 1 {
		t.Errorf("Breakdown = %+v", r.Breakdown)
	}
	if r.Breakdown.Weights.Stars != 0.38462 {
		t.Errorf("Weights.Stars = %v, want 0.38462", r.Breakdown.Weights.Stars)
	}
	if s.Score != 0.6666666666 {
		t.Error("Rounded mutated the receiver")
	}
}
