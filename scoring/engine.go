package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/jonwraymond/reposcore/vcs"
)

// Scoring constants.
const (
	Percentile     = 0.95
	HalfLife       = 90 * 24 * time.Hour
	NeutralRecency = 0.5

	minDenominator = 1e-9
)

// Breakdown holds the per-component inputs of a score.
type Breakdown struct {
	NormalizedStars float64 `json:"normalizedStars"`
	NormalizedForks float64 `json:"normalizedForks"`
	RecencyScore    float64 `json:"recencyScore"`
	Weights         Weights `json:"weights"`
}

// ScoredRepository is a repository with its score.
type ScoredRepository struct {
	Repository vcs.Repository `json:"repository"`
	Score      float64        `json:"score"`
	Breakdown  Breakdown      `json:"breakdown"`
}

// Engine scores batches of repositories.
//
// Contract:
// - Concurrency: safe for concurrent use; Engine holds no mutable state.
// - Errors: none. Bad timestamps score NeutralRecency.
type Engine struct {
	// Now is the reference time for recency.
	// Default: time.Now
	Now func() time.Time
}

// Score scores repos at the engine's current time. Output order matches
// input order.
func (e Engine) Score(repos []vcs.Repository, overrides Overrides) []ScoredRepository {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return Score(repos, now(), overrides)
}

// Score scores repos against reference time now.
func Score(repos []vcs.Repository, now time.Time, overrides Overrides) []ScoredRepository {
	if len(repos) == 0 {
		return []ScoredRepository{}
	}

	w := overrides.Merge()
	stars := make([]int64, len(repos))
	forks := make([]int64, len(repos))
	for i, r := range repos {
		stars[i] = r.Stars
		forks[i] = r.Forks
	}
	starDen := logDenominator(stars)
	forkDen := logDenominator(forks)

	out := make([]ScoredRepository, len(repos))
	for i, r := range repos {
		b := Breakdown{
			NormalizedStars: math.Min(1, logCount(r.Stars)/starDen),
			NormalizedForks: math.Min(1, logCount(r.Forks)/forkDen),
			RecencyScore:    Recency(r.UpdatedAt, now),
			Weights:         w,
		}
		raw := b.NormalizedStars*w.Stars + b.NormalizedForks*w.Forks + b.RecencyScore*w.Recency
		out[i] = ScoredRepository{Repository: r, Score: clamp01(raw), Breakdown: b}
	}
	return out
}

// Recency is the half-life decay of updatedAt relative to now: 1 for now
// or later, 0.5 at HalfLife. updatedAt is RFC 3339 or a bare date, read
// as midnight UTC. Unparsable timestamps yield NeutralRecency.
func Recency(updatedAt string, now time.Time) float64 {
	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		t, err = time.Parse(time.DateOnly, updatedAt)
	}
	if err != nil {
		return NeutralRecency
	}
	age := max(0, now.Sub(t))
	return math.Pow(0.5, float64(age)/float64(HalfLife))
}

// SortByScore orders items by descending score. Ties keep input order.
func SortByScore(items []ScoredRepository) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
}

func logCount(v int64) float64 {
	return math.Log1p(float64(max(0, v)))
}

// logDenominator is the Percentile value of log1p(max(0, v)) over values,
// floored at minDenominator.
func logDenominator(values []int64) float64 {
	logs := make([]float64, len(values))
	for i, v := range values {
		logs[i] = logCount(v)
	}
	sort.Float64s(logs)
	idx := min(len(logs)-1, int(math.Floor(Percentile*float64(len(logs)-1))))
	return math.Max(minDenominator, logs[idx])
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
