package entity

import (
	"time"

	"github.com/google/uuid"
)

type EnrollmentStatus string

const (
	EnrollmentAvailable EnrollmentStatus = "available"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentAbandoned EnrollmentStatus = "abandoned"
)

// Challenge is catalog data: the engine reads it, only the admin surface
// and the seeder write it.
type Challenge struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title              string    `gorm:"size:120;not null" json:"title"`
	Description        string    `gorm:"type:text" json:"description"`
	Category           string    `gorm:"size:50;index" json:"category"` // 'training', 'nutrition', 'mindset'
	DurationDays       int       `gorm:"not null" json:"duration_days"`
	DailyXPRate        int       `gorm:"not null" json:"daily_xp_rate"`
	CompletionXPReward int       `gorm:"not null" json:"completion_xp_reward"`
	IsActive           bool      `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// ChallengeEnrollment holds one row per (member, challenge). Re-enrollment
// after abandonment reuses the row and resets the derived fields.
type ChallengeEnrollment struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MemberID           uuid.UUID        `gorm:"type:uuid;index:idx_member_challenge,unique,priority:1;not null" json:"member_id"`
	ChallengeID        uuid.UUID        `gorm:"type:uuid;index:idx_member_challenge,unique,priority:2;not null" json:"challenge_id"`
	Challenge          Challenge        `gorm:"foreignKey:ChallengeID" json:"-"`
	Status             EnrollmentStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	StartDate          time.Time        `json:"start_date"`
	CurrentStreak      int              `gorm:"default:0" json:"current_streak"`
	LongestStreak      int              `gorm:"default:0" json:"longest_streak"`
	DaysLogged         int              `gorm:"default:0" json:"days_logged"`
	ProgressPercentage int              `gorm:"default:0" json:"progress_percentage"`
	CompletedAt        *time.Time       `json:"completed_at"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// ChallengeDayLog records one completed day per enrollment. The unique
// (enrollment_id, activity_date) index is what makes record-day safe to
// race: exactly one writer wins, the loser sees a duplicate-key error.
type ChallengeDayLog struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	EnrollmentID uuid.UUID           `gorm:"type:uuid;index:idx_enrollment_date,unique,priority:1;not null" json:"enrollment_id"`
	Enrollment   ChallengeEnrollment `gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE" json:"-"`
	ActivityDate time.Time           `gorm:"type:date;index:idx_enrollment_date,unique,priority:2;not null" json:"activity_date"`
	Completed    bool                `gorm:"default:true" json:"completed"`
	XPEarned     int                 `gorm:"not null" json:"xp_earned"`
	Notes        string              `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time           `json:"created_at"`
}
