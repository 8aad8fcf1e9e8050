package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/venturematch/venture-match/internal/db"
)

// MatchRepository provides data access for Match rows.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

func (r *MatchRepository) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Insert creates the match for a founder/investor pair. The unique pair index
// makes this safe under concurrent detection from both sides: the loser of
// the race reads back the winner's row. Returns the row plus whether this
// call created it.
func (r *MatchRepository) Insert(ctx context.Context, tx *gorm.DB, founderID, investorID uint64) (db.Match, bool, error) {
	match := db.Match{
		FounderID:  founderID,
		InvestorID: investorID,
		Status:     db.MatchActive,
	}
	res := r.handle(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "founder_id"}, {Name: "investor_id"}},
			DoNothing: true,
		}).
		Create(&match)
	if res.Error != nil {
		return db.Match{}, false, res.Error
	}
	if res.RowsAffected > 0 {
		return match, true, nil
	}

	existing, err := r.FindByPair(ctx, tx, founderID, investorID)
	if err != nil {
		return db.Match{}, false, err
	}
	if existing == nil {
		return db.Match{}, false, errors.New("match row missing after conflict")
	}
	return *existing, false, nil
}

// FindByPair returns the match for a founder/investor pair, or nil.
func (r *MatchRepository) FindByPair(ctx context.Context, tx *gorm.DB, founderID, investorID uint64) (*db.Match, error) {
	var match db.Match
	err := r.handle(tx).WithContext(ctx).
		Where("founder_id = ? AND investor_id = ?", founderID, investorID).
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ListForProfile returns all non-archived matches involving the profile,
// newest first.
func (r *MatchRepository) ListForProfile(ctx context.Context, profileID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(founder_id = ? OR investor_id = ?) AND status <> ?", profileID, profileID, db.MatchArchived).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}
