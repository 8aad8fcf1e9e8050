package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/venturematch/venture-match/internal/apperrors"
	"github.com/venturematch/venture-match/internal/db"
)

// ProfileRepository reads the profile projection. The engine never writes
// profiles outside of seeding; they belong to the external profile service.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get loads a profile by id.
func (r *ProfileRepository) Get(ctx context.Context, id uint64) (db.Profile, error) {
	var p db.Profile
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Profile{}, apperrors.NotFound("profile not found")
	}
	if err != nil {
		return db.Profile{}, err
	}
	return p, nil
}

// GetMany loads a set of profiles keyed by id.
func (r *ProfileRepository) GetMany(ctx context.Context, ids []uint64) (map[uint64]db.Profile, error) {
	out := make(map[uint64]db.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []db.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

// LockPair takes row locks on both profiles in ascending id order. Called at
// the top of the like transaction so that concurrent likes in either
// direction between the same two profiles serialize on the same locks.
// SQLite ignores FOR UPDATE, which is fine: its writes are serialized anyway.
func (r *ProfileRepository) LockPair(ctx context.Context, tx *gorm.DB, a, b uint64) error {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	var ids []uint64
	return withRowLock(tx.WithContext(ctx).Model(&db.Profile{})).
		Where("id IN ?", []uint64{lo, hi}).
		Order("id ASC").
		Pluck("id", &ids).Error
}
