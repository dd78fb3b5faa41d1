package scoring

import "math"

// DecimalPlaces is the presentation precision of scores.
const DecimalPlaces = 5

// Round rounds v to places decimals, half away from zero. Non-finite values
// are returned unchanged.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Rounded returns a copy of w with every weight rounded to DecimalPlaces.
func (w Weights) Rounded() Weights {
	return Weights{
		Stars:   Round(w.Stars, DecimalPlaces),
		Forks:   Round(w.Forks, DecimalPlaces),
		Recency: Round(w.Recency, DecimalPlaces),
	}
}

// Rounded returns a copy of s with the score and breakdown rounded to
// DecimalPlaces for presentation.
func (s ScoredRepository) Rounded() ScoredRepository {
	s.Score = Round(s.Score, DecimalPlaces)
	s.Breakdown = Breakdown{
		NormalizedStars: Round(s.Breakdown.NormalizedStars, DecimalPlaces),
		NormalizedForks: Round(s.Breakdown.NormalizedForks, DecimalPlaces),
		RecencyScore:    Round(s.Breakdown.RecencyScore, DecimalPlaces),
		Weights:         s.Breakdown.Weights.Rounded(),
	}
	return s
}
