package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/venturematch/venture-match/internal/db"
)

// LikeRepository provides data access for Like rows. Methods that must run
// inside the like transaction accept an explicit tx handle.
type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

func (r *LikeRepository) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Find returns the like from sender to recipient, or nil if none exists.
func (r *LikeRepository) Find(ctx context.Context, tx *gorm.DB, senderID, recipientID uint64) (*db.Like, error) {
	var like db.Like
	err := r.handle(tx).WithContext(ctx).
		Where("sender_id = ? AND recipient_id = ?", senderID, recipientID).
		First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// Insert writes a like if the (sender, recipient) pair does not exist yet.
// Returns false when a concurrent writer got there first; the caller re-reads
// and treats the call as idempotent.
func (r *LikeRepository) Insert(ctx context.Context, tx *gorm.DB, like *db.Like) (bool, error) {
	res := r.handle(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sender_id"}, {Name: "recipient_id"}},
			DoNothing: true,
		}).
		Create(like)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkMatched flips both directions of the pair to the matched disposition.
func (r *LikeRepository) MarkMatched(ctx context.Context, tx *gorm.DB, a, b uint64) error {
	return r.handle(tx).WithContext(ctx).
		Model(&db.Like{}).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", a, b, b, a).
		Update("disposition", db.DispositionMatched).Error
}

// PassRepository provides data access for Pass rows.
type PassRepository struct {
	db *gorm.DB
}

func NewPassRepository(database *gorm.DB) *PassRepository {
	return &PassRepository{db: database}
}

// Upsert records a pass; a repeat pass refreshes the retention window.
func (r *PassRepository) Upsert(ctx context.Context, userID, passedProfileID uint64, now time.Time) error {
	pass := db.Pass{
		UserID:          userID,
		PassedProfileID: passedProfileID,
		CreatedAt:       now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "passed_profile_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"created_at": now}),
		}).
		Create(&pass).Error
}

// ViewRepository provides data access for ProfileView rows.
type ViewRepository struct {
	db *gorm.DB
}

func NewViewRepository(database *gorm.DB) *ViewRepository {
	return &ViewRepository{db: database}
}

// Record upserts an impression per (viewer, viewed) pair, refreshing the
// de-dup window on re-view.
func (r *ViewRepository) Record(ctx context.Context, viewerID uint64, viewedIDs []uint64, now time.Time) error {
	if len(viewedIDs) == 0 {
		return nil
	}
	views := make([]db.ProfileView, 0, len(viewedIDs))
	for _, id := range viewedIDs {
		views = append(views, db.ProfileView{
			ViewerID:        viewerID,
			ViewedProfileID: id,
			CreatedAt:       now,
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "viewed_profile_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"created_at": now}),
		}).
		Create(&views).Error
}
