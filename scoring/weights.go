package scoring

import "math"

// Weights are the component weights of a score. Normalized weights sum to 1.
type Weights struct {
	Stars   float64 `json:"stars"`
	Forks   float64 `json:"forks"`
	Recency float64 `json:"recency"`
}

// DefaultWeights are applied for every component not overridden.
var DefaultWeights = Weights{Stars: 0.5, Forks: 0.3, Recency: 0.2}

// Overrides replaces individual default weights. Nil fields keep the
// default.
type Overrides struct {
	Stars   *float64 `json:"stars,omitempty"`
	Forks   *float64 `json:"forks,omitempty"`
	Recency *float64 `json:"recency,omitempty"`
}

// Merge applies o onto DefaultWeights and normalizes the result.
func (o Overrides) Merge() Weights {
	w := DefaultWeights
	if o.Stars != nil {
		w.Stars = *o.Stars
	}
	if o.Forks != nil {
		w.Forks = *o.Forks
	}
	if o.Recency != nil {
		w.Recency = *o.Recency
	}
	return w.Normalize()
}

// Normalize divides each weight by their sum. A zero or non-finite sum
// yields {1, 0, 0}.
func (w Weights) Normalize() Weights {
	sum := w.Stars + w.Forks + w.Recency
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return Weights{Stars: 1}
	}
	return Weights{Stars: w.Stars / sum, Forks: w.Forks / sum, Recency: w.Recency / sum}
}
