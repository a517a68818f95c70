package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	SourceChallengeDay        = "challenge_day"
	SourceChallengeCompletion = "challenge_completion"
	SourceLesson              = "lesson"
	SourceMission             = "mission"
	SourceInitialSetup        = "initial_setup"
	SourceBadgeBonus          = "badge_bonus"
)

// XpTransaction is the append-only ledger. Nothing in the codebase
// updates or deletes rows of this table; corrections are new rows with
// a negative amount.
type XpTransaction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MemberID   uuid.UUID `gorm:"type:uuid;index:idx_member_created,priority:1;not null" json:"member_id"`
	Amount     int       `gorm:"not null" json:"amount"` // negative only for reversals
	SourceType string    `gorm:"size:30;not null" json:"source_type"`
	SourceID   *string   `gorm:"size:64" json:"source_id"` // originating entity, e.g. day-log id or lesson id
	CreatedAt  time.Time `gorm:"index:idx_member_created,priority:2" json:"created_at"`
}

// MemberXp caches SUM(xp_transactions.amount) per member. It is
// recomputed inside the same transaction as every ledger write; the
// ledger stays the source of truth. InconsistentAt is stamped by the
// audit job when the cache and the ledger disagree, and blocks further
// writes for the member until an operator clears it.
type MemberXp struct {
	MemberID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"member_id"`
	TotalXP        int        `gorm:"default:0" json:"total_xp"`
	CurrentRankID  *uint      `json:"current_rank_id"`
	CurrentRank    *Rank      `gorm:"foreignKey:CurrentRankID" json:"current_rank,omitempty"`
	RankAchievedAt *time.Time `json:"rank_achieved_at"`
	InconsistentAt *time.Time `json:"inconsistent_at,omitempty"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MemberXp) TableName() string {
	return "member_xp"
}
