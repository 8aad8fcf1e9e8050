package scoring

import (
	"context"

	"github.com/venturematch/venture-match/internal/db"
)

// Scorer is the external similarity capability. Implementations call out to
// the embedding model service; the engine treats it as best-effort and falls
// back to HeuristicScorer whenever it errors, times out, or is absent.
type Scorer interface {
	// Similarity returns a score in [0,1] for how well candidate fits viewer.
	Similarity(ctx context.Context, viewer, candidate db.Profile) (float64, error)
}

// HeuristicScorer is the deterministic rule-based fallback: sector overlap
// plus stage and location agreement. It never errors, so discovery can always
// produce an ordered page.
type HeuristicScorer struct{}

// Similarity blends three rule signals: Jaccard overlap of sector lists
// (weight 0.5), stage equality (0.3), location equality (0.2).
func (HeuristicScorer) Similarity(_ context.Context, viewer, candidate db.Profile) (float64, error) {
	score := 0.5 * jaccard(viewer.SectorList(), candidate.SectorList())
	if viewer.Stage != "" && viewer.Stage == candidate.Stage {
		score += 0.3
	}
	if viewer.Location != "" && viewer.Location == candidate.Location {
		score += 0.2
	}
	return clamp01(score), nil
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	inter := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := set[s]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
