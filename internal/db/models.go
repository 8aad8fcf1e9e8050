package db

import (
	"strings"
	"time"
)

// Role is the side of the marketplace a profile sits on. It never changes
// after creation.
type Role string

const (
	RoleFounder  Role = "founder"
	RoleInvestor Role = "investor"
)

func (r Role) Valid() bool { return r == RoleFounder || r == RoleInvestor }

// Opposite returns the role eligible to appear in this role's feed.
func (r Role) Opposite() Role {
	if r == RoleFounder {
		return RoleInvestor
	}
	return RoleFounder
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Tier is the class of a like. Standard and superlike draw from the standard
// daily counter, rose from its own.
type Tier string

const (
	TierStandard  Tier = "standard"
	TierRose      Tier = "rose"
	TierSuperlike Tier = "superlike"
)

func (t Tier) Valid() bool {
	return t == TierStandard || t == TierRose || t == TierSuperlike
}

func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Disposition is the lifecycle state of a like. The only transition is
// pending → matched, exactly once.
type Disposition string

const (
	DispositionPending Disposition = "pending"
	DispositionMatched Disposition = "matched"
)

type MatchStatus string

const (
	MatchActive   MatchStatus = "active"
	MatchArchived MatchStatus = "archived"
	MatchBlocked  MatchStatus = "blocked"
)

// Profile is the read-only projection of the external profile store that the
// engine queries. TrustScore and EngagementScore are written by the external
// diligence and analytics pipelines.
type Profile struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	Role             Role   `gorm:"size:16;not null;index"`
	Name             string `gorm:"size:128;not null"`
	Sector           string `gorm:"size:64;index"`
	Sectors          string `gorm:"size:255"` // comma-separated, includes Sector
	Stage            string `gorm:"size:32;index"`
	Location         string `gorm:"size:64;index"`
	CheckSizeMinUSD  uint64 // investor only
	CheckSizeMaxUSD  uint64 // investor only
	AnnualRevenueUSD uint64 // founder only
	TeamSize         uint32 // founder only
	TrustScore       float64
	EngagementScore  float64
	Active           bool      `gorm:"default:true"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// SectorList splits the comma-separated Sectors column.
func (p Profile) SectorList() []string {
	if p.Sectors == "" {
		if p.Sector == "" {
			return nil
		}
		return []string{p.Sector}
	}
	parts := strings.Split(p.Sectors, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Like is a directional interest record.
//
// Unique index (sender_id, recipient_id) guarantees at most one row per
// ordered pair; Disposition flips pending → matched when the reciprocal like
// lands.
type Like struct {
	ID          uint64      `gorm:"primaryKey;autoIncrement"`
	SenderID    uint64      `gorm:"not null;uniqueIndex:idx_like_sender_recipient,priority:1"`
	RecipientID uint64      `gorm:"not null;uniqueIndex:idx_like_sender_recipient,priority:2;index:idx_like_recipient"`
	Tier        Tier        `gorm:"size:16;not null"`
	PromptID    *uint64     ``
	Note        string      `gorm:"size:280"`
	Disposition Disposition `gorm:"size:16;not null;default:pending"`
	CreatedAt   time.Time   `gorm:"autoCreateTime"`
}

// Pass suppresses a profile from the passer's feed until the retention window
// elapses. A repeat pass refreshes CreatedAt (window restarts).
type Pass struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	UserID          uint64    `gorm:"not null;uniqueIndex:idx_pass_user_target,priority:1"`
	PassedProfileID uint64    `gorm:"not null;uniqueIndex:idx_pass_user_target,priority:2"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// ProfileView records a feed impression, used only for short-window de-dup.
type ProfileView struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	ViewerID        uint64    `gorm:"not null;uniqueIndex:idx_view_viewer_target,priority:1"`
	ViewedProfileID uint64    `gorm:"not null;uniqueIndex:idx_view_viewer_target,priority:2"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// Match is the durable mutual-interest record. The pair is always one founder
// and one investor, so the (founder_id, investor_id) unique index covers the
// unordered pair.
type Match struct {
	ID         uint64      `gorm:"primaryKey;autoIncrement"`
	FounderID  uint64      `gorm:"not null;uniqueIndex:idx_match_pair,priority:1;index:idx_match_founder"`
	InvestorID uint64      `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index:idx_match_investor"`
	Status     MatchStatus `gorm:"size:16;not null;default:active"`
	CreatedAt  time.Time   `gorm:"autoCreateTime"`
}

// DailyLimit holds the per-profile counters for one UTC calendar day.
// Rows are created lazily and mutated only through conditional increments;
// stale days are simply never read again.
type DailyLimit struct {
	ProfileID    uint64    `gorm:"primaryKey;autoIncrement:false"`
	Day          string    `gorm:"primaryKey;size:10"` // YYYY-MM-DD in UTC
	StandardUsed int       `gorm:"not null;default:0"`
	RoseUsed     int       `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}
