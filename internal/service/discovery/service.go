package discovery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/venturematch/venture-match/internal/app"
	"github.com/venturematch/venture-match/internal/apperrors"
	"github.com/venturematch/venture-match/internal/metrics"
	"github.com/venturematch/venture-match/internal/repository"
	"github.com/venturematch/venture-match/internal/scoring"
	"github.com/venturematch/venture-match/internal/utils/pagination"
)

// Service produces the ranked discovery feed: retrieve eligible candidates,
// rank them, cache the page, and hand out an opaque continuation cursor.
//
// The relational store is authoritative; the Redis page cache is an
// accelerator that the service survives losing mid-request.
type Service struct {
	appCtx     *app.AppContext
	profiles   *repository.ProfileRepository
	candidates *repository.CandidateRepository
	views      *repository.ViewRepository
	ranker     *scoring.Ranker
	now        func() time.Time
}

// NewService wires the feed pipeline. scorer may be nil; ranking then runs
// purely on the heuristic fallback.
func NewService(appCtx *app.AppContext, scorer scoring.Scorer) *Service {
	cfg := appCtx.Config
	weights := scoring.Weights{
		Similarity: cfg.Rank.SimilarityWeight,
		Trust:      cfg.Rank.TrustWeight,
		Engagement: cfg.Rank.EngagementWeight,
	}
	return &Service{
		appCtx:     appCtx,
		profiles:   repository.NewProfileRepository(appCtx.DB),
		candidates: repository.NewCandidateRepository(appCtx.DB),
		views:      repository.NewViewRepository(appCtx.DB),
		ranker:     scoring.NewRanker(scorer, weights, cfg.Feed.ScorerTimeout, appCtx.Logger),
		now:        time.Now,
	}
}

// Request is one discovery page request.
type Request struct {
	ViewerID uint64
	Cursor   string
	Limit    int
	Filters  repository.Filters
}

// ProfileCard is the feed representation of a candidate.
type ProfileCard struct {
	ID               uint64   `json:"id"`
	Role             string   `json:"role"`
	Name             string   `json:"name"`
	Sector           string   `json:"sector,omitempty"`
	Sectors          []string `json:"sectors,omitempty"`
	Stage            string   `json:"stage,omitempty"`
	Location         string   `json:"location,omitempty"`
	CheckSizeMinUSD  uint64   `json:"min_check_size,omitempty"`
	CheckSizeMaxUSD  uint64   `json:"max_check_size,omitempty"`
	AnnualRevenueUSD uint64   `json:"annual_revenue_usd,omitempty"`
	TeamSize         uint32   `json:"team_size,omitempty"`
	Score            float64  `json:"score"`
}

// Page is one discovery response.
type Page struct {
	Profiles []ProfileCard `json:"profiles"`
	Cursor   string        `json:"cursor,omitempty"`
	HasMore  bool          `json:"has_more"`
}

// Discover returns one ranked feed page for the viewer.
func (s *Service) Discover(ctx context.Context, req Request) (Page, error) {
	metrics.FeedRequests.Inc()
	log := s.appCtx.Logger

	viewer, err := s.profiles.Get(ctx, req.ViewerID)
	if err != nil {
		return Page{}, err
	}

	if err := req.Filters.Validate(); err != nil {
		return Page{}, err
	}
	filterHash := req.Filters.Hash()

	cursor, err := pagination.Decode(req.Cursor)
	if err != nil {
		return Page{}, apperrors.InvalidArgument("invalid cursor")
	}
	if req.Cursor != "" && cursor.FilterHash != filterHash {
		return Page{}, apperrors.InvalidArgument("cursor does not match the requested filters")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.appCtx.Config.Feed.DefaultPageSize
	}
	if max := s.appCtx.Config.Feed.MaxPageSize; limit > max {
		limit = max
	}

	// cache probe; any cache failure falls through to the store
	cacheKey := s.pageKey(ctx, viewer.ID, filterHash, cursor.LastID)
	if cacheKey != "" {
		if payload, hit, err := s.appCtx.RedisCache.GetFeedPage(ctx, cacheKey); err != nil {
			log.Warn("feed cache read failed", "viewer", viewer.ID, "err", err)
		} else if hit {
			var page Page
			if err := json.Unmarshal([]byte(payload), &page); err == nil {
				metrics.FeedCacheHits.Inc()
				return page, nil
			}
			log.Warn("feed cache entry corrupt, recomputing", "viewer", viewer.ID)
		}
	}
	metrics.FeedCacheMisses.Inc()

	now := s.now()
	candidates, err := s.candidates.List(ctx, viewer, cursor.LastID, limit, req.Filters,
		now.Add(-s.appCtx.Config.Windows.PassRetention),
		now.Add(-s.appCtx.Config.Windows.ViewDedupe),
	)
	if err != nil {
		return Page{}, err
	}

	hasMore := len(candidates) > limit
	if hasMore {
		candidates = candidates[:limit]
	}

	ranked := s.ranker.Rank(ctx, viewer, candidates)

	page := Page{Profiles: make([]ProfileCard, 0, len(ranked)), HasMore: hasMore}
	for _, r := range ranked {
		page.Profiles = append(page.Profiles, toCard(r))
	}

	if hasMore {
		// candidates are id-ascending pre-ranking, so the last one is the keyset boundary
		token, err := pagination.Encode(pagination.Cursor{
			LastID:     candidates[len(candidates)-1].ID,
			FilterHash: filterHash,
			IssuedAt:   now.Unix(),
		})
		if err != nil {
			return Page{}, err
		}
		page.Cursor = token
	}

	// record impressions for the de-dup window; failure loses de-dup, not the page
	viewedIDs := make([]uint64, 0, len(candidates))
	for _, c := range candidates {
		viewedIDs = append(viewedIDs, c.ID)
	}
	if err := s.views.Record(ctx, viewer.ID, viewedIDs, now); err != nil {
		log.Warn("failed to record profile views", "viewer", viewer.ID, "err", err)
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(page); err == nil {
			if err := s.appCtx.RedisCache.SetFeedPage(ctx, cacheKey, string(payload), s.appCtx.Config.Feed.PageTTL); err != nil {
				log.Warn("feed cache write failed", "viewer", viewer.ID, "err", err)
			}
		}
	}

	return page, nil
}

// InvalidateCandidate is the hook the external profile service calls after a
// profile attribute change. It bumps the global ranking epoch so cached pages
// that may embed the profile stop being served.
func (s *Service) InvalidateCandidate(ctx context.Context, profileID uint64) error {
	if s.appCtx.RedisCache == nil {
		return nil
	}
	if err := s.appCtx.RedisCache.InvalidateCandidate(ctx, profileID); err != nil {
		return apperrors.Unavailable("cache unavailable", err)
	}
	return nil
}

// pageKey resolves the versioned cache key, or "" when the cache is
// unreachable and should be skipped for this request.
func (s *Service) pageKey(ctx context.Context, viewerID uint64, filterHash string, afterID uint64) string {
	rc := s.appCtx.RedisCache
	if rc == nil {
		return ""
	}
	version, err := rc.FeedVersion(ctx, viewerID)
	if err != nil {
		s.appCtx.Logger.Warn("feed version lookup failed", "viewer", viewerID, "err", err)
		return ""
	}
	epoch, err := rc.RankEpoch(ctx)
	if err != nil {
		s.appCtx.Logger.Warn("rank epoch lookup failed", "err", err)
		return ""
	}
	return rc.KeyForFeedPage(viewerID, version, epoch, filterHash, afterID)
}

func toCard(r scoring.Ranked) ProfileCard {
	p := r.Profile
	return ProfileCard{
		ID:               p.ID,
		Role:             string(p.Role),
		Name:             p.Name,
		Sector:           p.Sector,
		Sectors:          p.SectorList(),
		Stage:            p.Stage,
		Location:         p.Location,
		CheckSizeMinUSD:  p.CheckSizeMinUSD,
		CheckSizeMaxUSD:  p.CheckSizeMaxUSD,
		AnnualRevenueUSD: p.AnnualRevenueUSD,
		TeamSize:         p.TeamSize,
		Score:            r.Score,
	}
}
