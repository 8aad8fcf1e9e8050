package interest_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/venturematch/venture-match/internal/app"
	"github.com/venturematch/venture-match/internal/apperrors"
	"github.com/venturematch/venture-match/internal/config"
	"github.com/venturematch/venture-match/internal/db"
	"github.com/venturematch/venture-match/internal/notify"
	"github.com/venturematch/venture-match/internal/repository"
	"github.com/venturematch/venture-match/internal/service/interest"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []notify.MatchEvent
}

func (p *capturePublisher) PublishMatch(_ context.Context, ev notify.MatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() {}

func (p *capturePublisher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func setupAppCtx(t *testing.T) (*app.AppContext, *capturePublisher) {
	t.Helper()
	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(database))

	cfg := &config.Config{}
	cfg.Quota.StandardPerDay = 3
	cfg.Quota.RosesPerDay = 1

	pub := &capturePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.New(database, nil, logger, pub, cfg), pub
}

func setupService(t *testing.T) (*interest.Service, *gorm.DB, *capturePublisher) {
	t.Helper()
	appCtx, pub := setupAppCtx(t)
	return interest.NewService(appCtx, nil), appCtx.DB, pub
}

func seedPair(t *testing.T, database *gorm.DB) (founder, investor db.Profile) {
	t.Helper()
	founder = db.Profile{ID: 1, Role: db.RoleFounder, Name: "Ada", Sector: "fintech", Active: true}
	investor = db.Profile{ID: 11, Role: db.RoleInvestor, Name: "Grace", Sector: "fintech", Active: true}
	require.NoError(t, database.Create(&founder).Error)
	require.NoError(t, database.Create(&investor).Error)
	return founder, investor
}

func TestMutualLikeCreatesExactlyOneMatch(t *testing.T) {
	ctx := context.Background()
	svc, database, pub := setupService(t)
	founder, investor := seedPair(t, database)

	res, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierStandard})
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Status)
	assert.Nil(t, res.Match)
	assert.Zero(t, pub.len())

	res, err = svc.RecordLike(ctx, interest.LikeRequest{SenderID: investor.ID, RecipientID: founder.ID, Tier: db.TierStandard})
	require.NoError(t, err)
	assert.Equal(t, "matched", res.Status)
	require.NotNil(t, res.Match)
	assert.Equal(t, founder.ID, res.Match.FounderID)
	assert.Equal(t, investor.ID, res.Match.InvestorID)

	var count int64
	require.NoError(t, database.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// both like rows flip to matched
	var likes []db.Like
	require.NoError(t, database.Find(&likes).Error)
	require.Len(t, likes, 2)
	for _, l := range likes {
		assert.Equal(t, db.DispositionMatched, l.Disposition)
	}

	assert.Equal(t, 1, pub.len())
}

func TestMutualLikeInvestorFirst(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, investor := seedPair(t, database)

	res, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: investor.ID, RecipientID: founder.ID, Tier: db.TierRose})
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Status)

	res, err = svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierStandard})
	require.NoError(t, err)
	assert.Equal(t, "matched", res.Status)
	require.NotNil(t, res.Match)
	assert.Equal(t, founder.ID, res.Match.FounderID)
	assert.Equal(t, investor.ID, res.Match.InvestorID)
}

func TestRepeatLikeIsIdempotentAndFree(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, investor := seedPair(t, database)

	_, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierStandard})
	require.NoError(t, err)

	res, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierStandard})
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Status)

	var row db.DailyLimit
	require.NoError(t, database.First(&row, "profile_id = ?", founder.ID).Error)
	assert.Equal(t, 1, row.StandardUsed)

	var count int64
	require.NoError(t, database.Model(&db.Like{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepeatLikeAfterMatchReturnsMatch(t *testing.T) {
	ctx := context.Background()
	svc, database, pub := setupService(t)
	founder, investor := seedPair(t, database)

	_, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierStandard})
	require.NoError(t, err)
	_, err = svc.RecordLike(ctx, interest.LikeRequest{SenderID: investor.ID, RecipientID: founder.ID, Tier: db.TierStandard})
	require.NoError(t, err)

	res, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierStandard})
	require.NoError(t, err)
	assert.Equal(t, "matched", res.Status)
	require.NotNil(t, res.Match)

	// replay neither creates a second match nor re-publishes
	var count int64
	require.NoError(t, database.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, pub.len())
}

func TestLikeRejectsSelfAndSameRole(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, _ := seedPair(t, database)
	other := db.Profile{ID: 2, Role: db.RoleFounder, Name: "Lin", Active: true}
	require.NoError(t, database.Create(&other).Error)

	_, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: founder.ID, Tier: db.TierStandard})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	_, err = svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: other.ID, Tier: db.TierStandard})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	// rejected calls leave no rows behind
	var likeCount, quotaCount int64
	require.NoError(t, database.Model(&db.Like{}).Count(&likeCount).Error)
	require.NoError(t, database.Model(&db.DailyLimit{}).Count(&quotaCount).Error)
	assert.Zero(t, likeCount)
	assert.Zero(t, quotaCount)
}

func TestLikeRejectsUnknownProfiles(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, _ := seedPair(t, database)

	_, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: 999, Tier: db.TierStandard})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = svc.RecordLike(ctx, interest.LikeRequest{SenderID: 999, RecipientID: founder.ID, Tier: db.TierStandard})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestLikeQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, _ := seedPair(t, database)
	for i := uint64(12); i <= 15; i++ {
		inv := db.Profile{ID: i, Role: db.RoleInvestor, Name: fmt.Sprintf("inv-%d", i), Active: true}
		require.NoError(t, database.Create(&inv).Error)
	}

	// limit is 3 standard likes per day
	for _, rid := range []uint64{11, 12, 13} {
		_, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: rid, Tier: db.TierStandard})
		require.NoError(t, err)
	}

	_, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: 14, Tier: db.TierStandard})
	assert.Equal(t, apperrors.KindQuotaExceeded, apperrors.KindOf(err))

	var row db.DailyLimit
	require.NoError(t, database.First(&row, "profile_id = ?", founder.ID).Error)
	assert.Equal(t, 3, row.StandardUsed)

	// the rose pool is independent of the exhausted standard pool
	res, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: 14, Tier: db.TierRose})
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Status)

	_, err = svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: 15, Tier: db.TierRose})
	assert.Equal(t, apperrors.KindQuotaExceeded, apperrors.KindOf(err))
}

func TestSuperlikeDrawsFromStandardPool(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, investor := seedPair(t, database)

	_, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierSuperlike})
	require.NoError(t, err)

	var row db.DailyLimit
	require.NoError(t, database.First(&row, "profile_id = ?", founder.ID).Error)
	assert.Equal(t, 1, row.StandardUsed)
	assert.Equal(t, 0, row.RoseUsed)
}

func TestLikeNoteTooLong(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, investor := seedPair(t, database)

	long := make([]byte, 281)
	for i := range long {
		long[i] = 'a'
	}
	_, err := svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierStandard, Note: string(long)})
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
}

func TestRecordPass(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, investor := seedPair(t, database)

	require.NoError(t, svc.RecordPass(ctx, founder.ID, investor.ID))

	var first db.Pass
	require.NoError(t, database.First(&first, "user_id = ?", founder.ID).Error)

	// repeat pass refreshes the window instead of erroring
	require.NoError(t, svc.RecordPass(ctx, founder.ID, investor.ID))
	var count int64
	require.NoError(t, database.Model(&db.Pass{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(svc.RecordPass(ctx, founder.ID, founder.ID)))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(svc.RecordPass(ctx, founder.ID, 999)))
}

func TestGetLimits(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, investor := seedPair(t, database)

	limits, err := svc.GetLimits(ctx, founder.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, limits.StandardUsed)
	assert.Equal(t, 3, limits.StandardRemaining)
	assert.Equal(t, 1, limits.RoseRemaining)
	assert.Equal(t, repository.DayKey(time.Now()), limits.Date)

	_, err = svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierStandard})
	require.NoError(t, err)

	limits, err = svc.GetLimits(ctx, founder.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, limits.StandardUsed)
	assert.Equal(t, 2, limits.StandardRemaining)

	_, err = svc.GetLimits(ctx, 999)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestStoreOutageSurfacesAsUnavailable(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, investor := seedPair(t, database)

	// take the store down under the running service
	sqlDB, err := database.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierStandard})
	assert.Equal(t, apperrors.KindUnavailable, apperrors.KindOf(err))

	err = svc.RecordPass(ctx, founder.ID, investor.ID)
	assert.Equal(t, apperrors.KindUnavailable, apperrors.KindOf(err))

	_, err = svc.GetLimits(ctx, founder.ID)
	assert.Equal(t, apperrors.KindUnavailable, apperrors.KindOf(err))
}

func TestListMatches(t *testing.T) {
	ctx := context.Background()
	svc, database, _ := setupService(t)
	founder, investor := seedPair(t, database)

	items, err := svc.ListMatches(ctx, founder.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.RecordLike(ctx, interest.LikeRequest{SenderID: founder.ID, RecipientID: investor.ID, Tier: db.TierStandard})
	require.NoError(t, err)
	_, err = svc.RecordLike(ctx, interest.LikeRequest{SenderID: investor.ID, RecipientID: founder.ID, Tier: db.TierStandard})
	require.NoError(t, err)

	items, err = svc.ListMatches(ctx, founder.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "active", items[0].Status)
	assert.Equal(t, investor.ID, items[0].Counterpart.ID)
	assert.Equal(t, "investor", items[0].Counterpart.Role)
	assert.Equal(t, "Grace", items[0].Counterpart.Name)

	// the other side sees the same match
	items, err = svc.ListMatches(ctx, investor.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, founder.ID, items[0].Counterpart.ID)
}
