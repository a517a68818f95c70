package entity

import (
	"time"

	"github.com/google/uuid"
)

// Badge criteria are a closed set of predicate kinds dispatched by the
// evaluator, not an open plugin system.
const (
	CriteriaStreak              = "streak"
	CriteriaTotalXP             = "total_xp"
	CriteriaChallengesCompleted = "challenges_completed"
	CriteriaDaysLogged          = "days_logged"
	CriteriaLessonsCompleted    = "lessons_completed"
)

type Badge struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name          string    `gorm:"size:80;uniqueIndex;not null" json:"name"`
	Description   string    `gorm:"size:255" json:"description"`
	Icon          string    `gorm:"size:50" json:"icon"`
	CriteriaType  string    `gorm:"size:30;not null" json:"criteria_type"`
	CriteriaValue int       `gorm:"not null" json:"criteria_value"`
	XPBonus       int       `gorm:"default:0" json:"xp_bonus"`
	CreatedAt     time.Time `json:"created_at"`
}

// MemberBadge is write-once: the composite primary key makes grants
// idempotent even under concurrent evaluation, and the engine never
// revokes a row.
type MemberBadge struct {
	MemberID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"member_id"`
	BadgeID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"badge_id"`
	Badge      Badge     `gorm:"foreignKey:BadgeID" json:"badge"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
