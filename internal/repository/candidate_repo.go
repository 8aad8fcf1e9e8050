package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/venturematch/venture-match/internal/apperrors"
	"github.com/venturematch/venture-match/internal/db"
)

// Filters narrow the candidate set. Zero values mean "no filter".
type Filters struct {
	Stages       []string
	Sectors      []string
	Location     string
	MinCheckSize *uint64
	MaxCheckSize *uint64
}

// Validate rejects malformed filter combinations rather than silently
// returning an empty set.
func (f Filters) Validate() error {
	if f.MinCheckSize != nil && f.MaxCheckSize != nil && *f.MinCheckSize > *f.MaxCheckSize {
		return apperrors.InvalidArgument("min_check_size must not exceed max_check_size")
	}
	return nil
}

// Hash produces a short stable digest of the filter set, used to bind cursors
// and cache keys to the filters they were issued for.
func (f Filters) Hash() string {
	stages := append([]string(nil), f.Stages...)
	sectors := append([]string(nil), f.Sectors...)
	sort.Strings(stages)
	sort.Strings(sectors)

	var b strings.Builder
	b.WriteString("stages=" + strings.Join(stages, ","))
	b.WriteString("|sectors=" + strings.Join(sectors, ","))
	b.WriteString("|loc=" + f.Location)
	if f.MinCheckSize != nil {
		b.WriteString("|min=" + strconv.FormatUint(*f.MinCheckSize, 10))
	}
	if f.MaxCheckSize != nil {
		b.WriteString("|max=" + strconv.FormatUint(*f.MaxCheckSize, 10))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:12]
}

// CandidateRepository retrieves role-opposite profiles eligible for a
// viewer's feed, honoring every exclusion the feed contract requires.
type CandidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(database *gorm.DB) *CandidateRepository {
	return &CandidateRepository{db: database}
}

// List returns up to limit+1 candidates ordered by id ascending (the stable
// key the cursor walks), starting strictly after afterID. The extra row lets
// the caller detect has_more.
//
// Exclusions: already liked by the viewer, passed within the retention
// window, matched (non-archived), viewed within the de-dup window.
func (r *CandidateRepository) List(
	ctx context.Context,
	viewer db.Profile,
	afterID uint64,
	limit int,
	f Filters,
	passCutoff time.Time,
	viewCutoff time.Time,
) ([]db.Profile, error) {
	q := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("profiles.role = ?", viewer.Role.Opposite()).
		Where("profiles.active = ?", true).
		Where("profiles.id > ?", afterID).
		Where(`NOT EXISTS (
			SELECT 1 FROM likes l
			WHERE l.sender_id = ? AND l.recipient_id = profiles.id
		)`, viewer.ID).
		Where(`NOT EXISTS (
			SELECT 1 FROM passes p
			WHERE p.user_id = ? AND p.passed_profile_id = profiles.id AND p.created_at > ?
		)`, viewer.ID, passCutoff).
		Where(`NOT EXISTS (
			SELECT 1 FROM matches m
			WHERE ((m.founder_id = ? AND m.investor_id = profiles.id)
			   OR  (m.investor_id = ? AND m.founder_id = profiles.id))
			  AND m.status <> ?
		)`, viewer.ID, viewer.ID, db.MatchArchived).
		Where(`NOT EXISTS (
			SELECT 1 FROM profile_views v
			WHERE v.viewer_id = ? AND v.viewed_profile_id = profiles.id AND v.created_at > ?
		)`, viewer.ID, viewCutoff)

	if len(f.Stages) > 0 {
		q = q.Where("profiles.stage IN ?", f.Stages)
	}
	if len(f.Sectors) > 0 {
		q = q.Where("profiles.sector IN ?", f.Sectors)
	}
	if f.Location != "" {
		q = q.Where("profiles.location = ?", f.Location)
	}
	// Check-size bounds only constrain investor candidates; founder rows have
	// no check size to match against.
	if viewer.Role.Opposite() == db.RoleInvestor {
		if f.MinCheckSize != nil {
			q = q.Where("profiles.check_size_max_usd >= ?", *f.MinCheckSize)
		}
		if f.MaxCheckSize != nil {
			q = q.Where("profiles.check_size_min_usd <= ?", *f.MaxCheckSize)
		}
	}

	var candidates []db.Profile
	err := q.Order("profiles.id ASC").Limit(limit + 1).Find(&candidates).Error
	return candidates, err
}
