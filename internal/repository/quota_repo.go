package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/venturematch/venture-match/internal/db"
)

// Limits are the configured per-day ceilings.
type Limits struct {
	StandardPerDay int
	RosesPerDay    int
}

// QuotaRepository owns the DailyLimit counters. All mutation goes through a
// conditional UPDATE (increment-with-ceiling), so concurrent consumers for the
// same profile can never push a counter past its limit. The relational store
// is the only authority for quota state.
type QuotaRepository struct {
	db *gorm.DB
}

func NewQuotaRepository(database *gorm.DB) *QuotaRepository {
	return &QuotaRepository{db: database}
}

func (r *QuotaRepository) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// DayKey formats the UTC calendar day used to scope the counters. The day
// boundary is server UTC, not the user's local timezone.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// counterColumn maps a tier to its counter. Superlikes draw from the standard
// counter; only roses have a separate one.
func counterColumn(tier db.Tier) string {
	if tier == db.TierRose {
		return "rose_used"
	}
	return "standard_used"
}

func ceilingFor(tier db.Tier, limits Limits) int {
	if tier == db.TierRose {
		return limits.RosesPerDay
	}
	return limits.StandardPerDay
}

// TryConsume atomically takes one unit of the tier's counter for the given
// day. Returns allowed=false with remaining=0 when the ceiling is reached.
// Runs inside the caller's transaction so a failed like insert rolls the
// consumption back.
func (r *QuotaRepository) TryConsume(ctx context.Context, tx *gorm.DB, profileID uint64, tier db.Tier, dayKey string, limits Limits) (bool, int, error) {
	h := r.handle(tx).WithContext(ctx)

	// lazy row creation, first action of the day
	row := db.DailyLimit{ProfileID: profileID, Day: dayKey}
	if err := h.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "day"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return false, 0, err
	}

	column := counterColumn(tier)
	ceiling := ceilingFor(tier, limits)

	res := h.Model(&db.DailyLimit{}).
		Where("profile_id = ? AND day = ? AND "+column+" < ?", profileID, dayKey, ceiling).
		Update(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return false, 0, res.Error
	}
	if res.RowsAffected == 0 {
		return false, 0, nil
	}

	current, err := r.Get(ctx, tx, profileID, dayKey)
	if err != nil {
		return false, 0, err
	}
	used := current.StandardUsed
	if tier == db.TierRose {
		used = current.RoseUsed
	}
	remaining := ceiling - used
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, nil
}

// Get returns the day's counters; a zero-valued row when no action has
// happened yet. Reads the same row TryConsume mutates, never a cache.
func (r *QuotaRepository) Get(ctx context.Context, tx *gorm.DB, profileID uint64, dayKey string) (db.DailyLimit, error) {
	var row db.DailyLimit
	err := r.handle(tx).WithContext(ctx).
		Where("profile_id = ? AND day = ?", profileID, dayKey).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.DailyLimit{ProfileID: profileID, Day: dayKey}, nil
	}
	if err != nil {
		return db.DailyLimit{}, err
	}
	return row, nil
}
