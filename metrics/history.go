package metrics

import (
	"sync"

	"github.com/montanaflynn/stats"

	"github.com/mosaicworks/cadenceforge/pipeline"
)

// History keeps a bounded window of recent session outcomes for
// statistical summaries. Safe for concurrent use.
type History struct {
	mu        sync.Mutex
	capacity  int
	scores    []float64
	attempts  []float64
	outcomes  []bool
	fallbacks []bool
}

// DefaultHistoryCapacity bounds the rolling window.
const DefaultHistoryCapacity = 500

// NewHistory creates a rolling window. Capacity <= 0 uses the default.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity}
}

// Add records one finished session, evicting the oldest entry once the
// window is full.
func (h *History) Add(result *pipeline.RetryResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.scores) == h.capacity {
		h.scores = h.scores[1:]
		h.attempts = h.attempts[1:]
		h.outcomes = h.outcomes[1:]
		h.fallbacks = h.fallbacks[1:]
	}

	h.scores = append(h.scores, result.FinalQualityScore.Overall)
	h.attempts = append(h.attempts, float64(result.TotalAttempts))
	h.outcomes = append(h.outcomes, result.Success)
	h.fallbacks = append(h.fallbacks, result.FallbackUsed)
}

// Summary is a point-in-time statistical digest of the window.
type Summary struct {
	Sessions      int     `json:"sessions"`
	SuccessRate   float64 `json:"success_rate"`
	FallbackRate  float64 `json:"fallback_rate"`
	MeanScore     float64 `json:"mean_score"`
	MedianScore   float64 `json:"median_score"`
	ScoreStdDev   float64 `json:"score_std_dev"`
	P95Score      float64 `json:"p95_score"`
	MeanAttempts  float64 `json:"mean_attempts"`
	WorstScore    float64 `json:"worst_score"`
	BestScore     float64 `json:"best_score"`
}

// Summarize computes the digest for the current window. An empty window
// yields the zero Summary.
func (h *History) Summarize() Summary {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.scores)
	if n == 0 {
		return Summary{}
	}

	mean, _ := stats.Mean(h.scores)
	median, _ := stats.Median(h.scores)
	stdDev, _ := stats.StandardDeviation(h.scores)
	p95, _ := stats.Percentile(h.scores, 95)
	worst, _ := stats.Min(h.scores)
	best, _ := stats.Max(h.scores)
	meanAttempts, _ := stats.Mean(h.attempts)

	successes, fallbacks := 0, 0
	for i := range h.outcomes {
		if h.outcomes[i] {
			successes++
		}
		if h.fallbacks[i] {
			fallbacks++
		}
	}

	return Summary{
		Sessions:     n,
		SuccessRate:  float64(successes) / float64(n),
		FallbackRate: float64(fallbacks) / float64(n),
		MeanScore:    mean,
		MedianScore:  median,
		ScoreStdDev:  stdDev,
		P95Score:     p95,
		MeanAttempts: meanAttempts,
		WorstScore:   worst,
		BestScore:    best,
	}
}
