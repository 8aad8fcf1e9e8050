package interest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/venturematch/venture-match/internal/app"
	"github.com/venturematch/venture-match/internal/apperrors"
	"github.com/venturematch/venture-match/internal/db"
	"github.com/venturematch/venture-match/internal/metrics"
	"github.com/venturematch/venture-match/internal/notify"
	"github.com/venturematch/venture-match/internal/repository"
)

const maxNoteLength = 280

// errLostInsertRace signals that a concurrent call inserted the same like
// first; the transaction rolls back (returning the consumed quota unit) and
// the caller re-reads the winner's state.
var errLostInsertRace = errors.New("lost like insert race")

// PreviewSource supplies the last-activity preview for a match. The real
// implementation lives with the external messaging system.
type PreviewSource interface {
	LastActivity(ctx context.Context, matchID uint64) (string, error)
}

// NoPreview is the default when no messaging collaborator is wired.
type NoPreview struct{}

func (NoPreview) LastActivity(context.Context, uint64) (string, error) { return "", nil }

// Service records directional interest, detects mutual interest, and owns the
// daily quota surface.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	likes    *repository.LikeRepository
	passes   *repository.PassRepository
	matches  *repository.MatchRepository
	quota    *repository.QuotaRepository
	preview  PreviewSource
	now      func() time.Time
}

func NewService(appCtx *app.AppContext, preview PreviewSource) *Service {
	if preview == nil {
		preview = NoPreview{}
	}
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
		likes:    repository.NewLikeRepository(appCtx.DB),
		passes:   repository.NewPassRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		quota:    repository.NewQuotaRepository(appCtx.DB),
		preview:  preview,
		now:      time.Now,
	}
}

func (s *Service) limits() repository.Limits {
	return repository.Limits{
		StandardPerDay: s.appCtx.Config.Quota.StandardPerDay,
		RosesPerDay:    s.appCtx.Config.Quota.RosesPerDay,
	}
}

// LikeRequest is one directional like.
type LikeRequest struct {
	SenderID    uint64
	RecipientID uint64
	Tier        db.Tier
	PromptID    *uint64
	Note        string
}

// MatchView is the API shape of a match record.
type MatchView struct {
	ID         uint64    `json:"id"`
	FounderID  uint64    `json:"founder_id"`
	InvestorID uint64    `json:"investor_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// LikeResult reports whether the like is still pending or completed a match.
type LikeResult struct {
	Status string     `json:"status"` // "pending" | "matched"
	Match  *MatchView `json:"match"`
}

// RecordLike validates, consumes quota, writes the like, and runs match
// detection — all inside one transaction so the two concurrent orderings of a
// mutual pair converge on exactly one match.
//
// A repeat like for the same (sender, recipient) pair is idempotent: it
// returns the current state and consumes no quota.
func (s *Service) RecordLike(ctx context.Context, req LikeRequest) (LikeResult, error) {
	log := s.appCtx.Logger

	if !req.Tier.Valid() {
		return LikeResult{}, apperrors.InvalidArgument("tier must be one of standard, rose, superlike")
	}
	if len(req.Note) > maxNoteLength {
		return LikeResult{}, apperrors.InvalidArgument("note exceeds maximum length")
	}
	if req.SenderID == req.RecipientID {
		return LikeResult{}, apperrors.InvalidArgument("cannot like yourself")
	}

	sender, err := s.profiles.Get(ctx, req.SenderID)
	if err != nil {
		return LikeResult{}, storeErr(err)
	}
	recipient, err := s.profiles.Get(ctx, req.RecipientID)
	if err != nil {
		return LikeResult{}, storeErr(err)
	}
	if sender.Role == recipient.Role {
		return LikeResult{}, apperrors.InvalidArgument("only founder and investor profiles can match")
	}

	founderID, investorID := orientPair(sender, recipient)
	now := s.now().UTC()
	dayKey := repository.DayKey(now)

	var result LikeResult
	var createdMatch *db.Match

	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// row locks in id order serialize both like directions for this pair
		if err := s.profiles.LockPair(ctx, tx, sender.ID, recipient.ID); err != nil {
			return err
		}

		existing, err := s.likes.Find(ctx, tx, sender.ID, recipient.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			result, err = s.resultForExisting(ctx, tx, existing, founderID, investorID)
			return err
		}

		allowed, _, err := s.quota.TryConsume(ctx, tx, sender.ID, req.Tier, dayKey, s.limits())
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.QuotaExceeded("daily like limit reached for this tier")
		}

		like := db.Like{
			SenderID:    sender.ID,
			RecipientID: recipient.ID,
			Tier:        req.Tier,
			PromptID:    req.PromptID,
			Note:        req.Note,
			Disposition: db.DispositionPending,
			CreatedAt:   now,
		}
		inserted, err := s.likes.Insert(ctx, tx, &like)
		if err != nil {
			return err
		}
		if !inserted {
			return errLostInsertRace
		}

		reciprocal, err := s.likes.Find(ctx, tx, recipient.ID, sender.ID)
		if err != nil {
			return err
		}
		if reciprocal == nil {
			result = LikeResult{Status: "pending"}
			return nil
		}

		if err := s.likes.MarkMatched(ctx, tx, sender.ID, recipient.ID); err != nil {
			return err
		}
		match, created, err := s.matches.Insert(ctx, tx, founderID, investorID)
		if err != nil {
			return err
		}
		if created {
			createdMatch = &match
		}
		result = LikeResult{Status: "matched", Match: toMatchView(match)}
		return nil
	})

	if errors.Is(err, errLostInsertRace) {
		// a concurrent call won; report its state
		existing, ferr := s.likes.Find(ctx, nil, sender.ID, recipient.ID)
		if ferr != nil || existing == nil {
			return LikeResult{}, apperrors.Conflict("like already in progress, retry")
		}
		result, err = s.resultForExisting(ctx, nil, existing, founderID, investorID)
	}
	if err != nil {
		metrics.LikesRecorded.WithLabelValues(string(req.Tier), "error").Inc()
		return LikeResult{}, storeErr(err)
	}

	s.invalidateFeeds(ctx, sender.ID, recipient.ID, result.Status == "matched")

	if createdMatch != nil {
		metrics.MatchesCreated.Inc()
		event := notify.MatchEvent{
			EventID:    uuid.NewString(),
			MatchID:    createdMatch.ID,
			FounderID:  createdMatch.FounderID,
			InvestorID: createdMatch.InvestorID,
			CreatedAt:  now.Unix(),
		}
		if err := s.appCtx.Publisher.PublishMatch(ctx, event); err != nil {
			log.Error("failed to publish match event", "match", createdMatch.ID, "err", err)
		}
		log.Info("match created", "match", createdMatch.ID, "founder", createdMatch.FounderID, "investor", createdMatch.InvestorID)
	}

	metrics.LikesRecorded.WithLabelValues(string(req.Tier), result.Status).Inc()
	return result, nil
}

// resultForExisting maps an already-present like row to the idempotent reply.
func (s *Service) resultForExisting(ctx context.Context, tx *gorm.DB, like *db.Like, founderID, investorID uint64) (LikeResult, error) {
	if like.Disposition != db.DispositionMatched {
		return LikeResult{Status: "pending"}, nil
	}
	match, err := s.matches.FindByPair(ctx, tx, founderID, investorID)
	if err != nil {
		return LikeResult{}, err
	}
	if match == nil {
		// matched like without a match row means a partial write leaked
		return LikeResult{}, apperrors.Conflict("match state inconsistent, retry")
	}
	return LikeResult{Status: "matched", Match: toMatchView(*match)}, nil
}

// RecordPass suppresses the target from the user's feed for the retention
// window. Repeat passes refresh the window.
func (s *Service) RecordPass(ctx context.Context, userID, passedProfileID uint64) error {
	if userID == passedProfileID {
		return apperrors.InvalidArgument("cannot pass on yourself")
	}
	if _, err := s.profiles.Get(ctx, userID); err != nil {
		return storeErr(err)
	}
	if _, err := s.profiles.Get(ctx, passedProfileID); err != nil {
		return storeErr(err)
	}

	if err := s.passes.Upsert(ctx, userID, passedProfileID, s.now().UTC()); err != nil {
		return storeErr(err)
	}

	metrics.PassesRecorded.Inc()
	s.invalidateFeeds(ctx, userID, 0, false)
	return nil
}

// DailyLimits is the read-only quota surface. It reflects the same counters
// the like path mutates; there is no cached copy to go stale.
type DailyLimits struct {
	StandardUsed      int    `json:"standard_used"`
	StandardRemaining int    `json:"standard_remaining"`
	StandardLimit     int    `json:"standard_limit"`
	RoseUsed          int    `json:"rose_used"`
	RoseRemaining     int    `json:"rose_remaining"`
	RoseLimit         int    `json:"rose_limit"`
	Date              string `json:"date"` // UTC calendar day
}

// GetLimits reports the profile's consumption for the current UTC day.
func (s *Service) GetLimits(ctx context.Context, profileID uint64) (DailyLimits, error) {
	if _, err := s.profiles.Get(ctx, profileID); err != nil {
		return DailyLimits{}, storeErr(err)
	}

	dayKey := repository.DayKey(s.now())
	row, err := s.quota.Get(ctx, nil, profileID, dayKey)
	if err != nil {
		return DailyLimits{}, storeErr(err)
	}

	limits := s.limits()
	return DailyLimits{
		StandardUsed:      row.StandardUsed,
		StandardRemaining: nonNegative(limits.StandardPerDay - row.StandardUsed),
		StandardLimit:     limits.StandardPerDay,
		RoseUsed:          row.RoseUsed,
		RoseRemaining:     nonNegative(limits.RosesPerDay - row.RoseUsed),
		RoseLimit:         limits.RosesPerDay,
		Date:              dayKey,
	}, nil
}

// MatchItem is one entry in a profile's match list.
type MatchItem struct {
	ID           uint64      `json:"id"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	Counterpart  Counterpart `json:"counterpart"`
	LastActivity string      `json:"last_activity,omitempty"`
}

// Counterpart summarizes the other side of a match.
type Counterpart struct {
	ID       uint64 `json:"id"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Sector   string `json:"sector,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Location string `json:"location,omitempty"`
}

// ListMatches returns the profile's non-archived matches, newest first.
func (s *Service) ListMatches(ctx context.Context, profileID uint64) ([]MatchItem, error) {
	if _, err := s.profiles.Get(ctx, profileID); err != nil {
		return nil, storeErr(err)
	}

	matches, err := s.matches.ListForProfile(ctx, profileID)
	if err != nil {
		return nil, storeErr(err)
	}

	counterpartIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		counterpartIDs = append(counterpartIDs, counterpartID(m, profileID))
	}
	counterparts, err := s.profiles.GetMany(ctx, counterpartIDs)
	if err != nil {
		return nil, storeErr(err)
	}

	items := make([]MatchItem, 0, len(matches))
	for _, m := range matches {
		item := MatchItem{
			ID:        m.ID,
			Status:    string(m.Status),
			CreatedAt: m.CreatedAt,
		}
		if p, ok := counterparts[counterpartID(m, profileID)]; ok {
			item.Counterpart = Counterpart{
				ID:       p.ID,
				Role:     string(p.Role),
				Name:     p.Name,
				Sector:   p.Sector,
				Stage:    p.Stage,
				Location: p.Location,
			}
		}
		if preview, err := s.preview.LastActivity(ctx, m.ID); err == nil {
			item.LastActivity = preview
		}
		items = append(items, item)
	}
	return items, nil
}

// invalidateFeeds bumps the affected viewers' cache versions. Cache failures
// only extend staleness to the page TTL, so they are logged and swallowed.
func (s *Service) invalidateFeeds(ctx context.Context, a, b uint64, both bool) {
	rc := s.appCtx.RedisCache
	if rc == nil {
		return
	}
	if err := rc.InvalidateViewerFeed(ctx, a); err != nil {
		s.appCtx.Logger.Warn("feed invalidation failed", "viewer", a, "err", err)
	}
	if both && b != 0 {
		if err := rc.InvalidateViewerFeed(ctx, b); err != nil {
			s.appCtx.Logger.Warn("feed invalidation failed", "viewer", b, "err", err)
		}
	}
}

func orientPair(a, b db.Profile) (founderID, investorID uint64) {
	if a.Role == db.RoleFounder {
		return a.ID, b.ID
	}
	return b.ID, a.ID
}

func counterpartID(m db.Match, profileID uint64) uint64 {
	if m.FounderID == profileID {
		return m.InvestorID
	}
	return m.FounderID
}

func toMatchView(m db.Match) *MatchView {
	return &MatchView{
		ID:         m.ID,
		FounderID:  m.FounderID,
		InvestorID: m.InvestorID,
		Status:     string(m.Status),
		CreatedAt:  m.CreatedAt,
	}
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// storeErr classifies raw database failures as Unavailable (503) so a store
// outage does not surface as a generic internal error. Deliberate
// classifications and not-found reads pass through unchanged.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return apperrors.Unavailable("datastore unavailable", err)
}
