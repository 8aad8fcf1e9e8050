package scoring

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/venturematch/venture-match/internal/db"
)

// Weights blends the three ranking signals. Values must be non-negative and
// need not sum to 1; the ranker normalizes internally.
type Weights struct {
	Similarity float64
	Trust      float64
	Engagement float64
}

func (w Weights) normalized() Weights {
	sum := w.Similarity + w.Trust + w.Engagement
	if sum <= 0 {
		// degenerate config, rank purely on similarity
		return Weights{Similarity: 1}
	}
	return Weights{
		Similarity: w.Similarity / sum,
		Trust:      w.Trust / sum,
		Engagement: w.Engagement / sum,
	}
}

// Ranked is one scored candidate.
type Ranked struct {
	Profile    db.Profile
	Score      float64
	Similarity float64
	Fallback   bool // heuristic similarity was used for this candidate
}

// Ranker turns a candidate page into a deterministically ordered one.
// It is a pure function over its inputs plus the Scorer call; ties (including
// the all-fallback case) break on candidate id ascending so pagination stays
// stable and testable.
type Ranker struct {
	scorer   Scorer
	fallback HeuristicScorer
	weights  Weights
	timeout  time.Duration
	log      *slog.Logger
}

func NewRanker(scorer Scorer, weights Weights, scorerTimeout time.Duration, log *slog.Logger) *Ranker {
	if scorerTimeout <= 0 {
		scorerTimeout = 300 * time.Millisecond
	}
	return &Ranker{
		scorer:  scorer,
		weights: weights.normalized(),
		timeout: scorerTimeout,
		log:     log,
	}
}

// Rank scores and orders candidates for the viewer. A failing or absent
// Scorer degrades to the heuristic, never to an error.
func (r *Ranker) Rank(ctx context.Context, viewer db.Profile, candidates []db.Profile) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, candidate := range candidates {
		sim, fellBack := r.similarity(ctx, viewer, candidate)
		score := r.weights.Similarity*sim +
			r.weights.Trust*clamp01(candidate.TrustScore) +
			r.weights.Engagement*clamp01(candidate.EngagementScore)
		ranked = append(ranked, Ranked{
			Profile:    candidate,
			Score:      score,
			Similarity: sim,
			Fallback:   fellBack,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Profile.ID < ranked[j].Profile.ID
	})

	return ranked
}

func (r *Ranker) similarity(ctx context.Context, viewer, candidate db.Profile) (float64, bool) {
	if r.scorer == nil {
		sim, _ := r.fallback.Similarity(ctx, viewer, candidate)
		return sim, true
	}

	scoreCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sim, err := r.scorer.Similarity(scoreCtx, viewer, candidate)
	if err != nil {
		if r.log != nil {
			r.log.Warn("scorer failed, using heuristic", "candidate", candidate.ID, "err", err)
		}
		sim, _ = r.fallback.Similarity(ctx, viewer, candidate)
		return sim, true
	}
	return clamp01(sim), false
}
