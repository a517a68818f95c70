package dto

import (
	"time"

	"github.com/google/uuid"
	"vigorfit.com/progressionengine/internal/entity"
)

const DateLayout = "2006-01-02"

type RecordDayRequest struct {
	// ActivityDate defaults to today (UTC) when omitted.
	ActivityDate string `json:"activity_date" binding:"omitempty,datetime=2006-01-02"`
	Notes        string `json:"notes" binding:"max=500"`
}

type CreateChallengeInput struct {
	Title              string `json:"title" binding:"required,max=120"`
	Description        string `json:"description" binding:"max=2000"`
	Category           string `json:"category" binding:"omitempty,oneof=training nutrition mindset"`
	DurationDays       int    `json:"duration_days" binding:"required,gt=0"`
	DailyXPRate        int    `json:"daily_xp_rate" binding:"required,gt=0"`
	CompletionXPReward int    `json:"completion_xp_reward" binding:"gte=0"`
}

type EnrollmentSummary struct {
	ID                 uuid.UUID `json:"id"`
	ChallengeID        uuid.UUID `json:"challenge_id"`
	ChallengeTitle     string    `json:"challenge_title"`
	Status             string    `json:"status"`
	StartDate          string    `json:"start_date"`
	CurrentStreak      int       `json:"current_streak"`
	LongestStreak      int       `json:"longest_streak"`
	DaysLogged         int       `json:"days_logged"`
	DurationDays       int       `json:"duration_days"`
	ProgressPercentage int       `json:"progress_percentage"`
	CompletedAt        *string   `json:"completed_at"`
}

type BadgeSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	XPBonus     int       `json:"xp_bonus"`
}

type RecordDayResponse struct {
	Enrollment          EnrollmentSummary `json:"enrollment"`
	XPEarned            int               `json:"xp_earned"`
	TotalXP             int               `json:"total_xp"`
	RankName            string            `json:"rank_name"`
	NewlyUnlockedBadges []BadgeSummary    `json:"newly_unlocked_badges"`
}

type UndoDayResponse struct {
	Enrollment EnrollmentSummary `json:"enrollment"`
	XPReversed int               `json:"xp_reversed"`
	TotalXP    int               `json:"total_xp"`
	RankName   string            `json:"rank_name"`
}

type CatalogEntry struct {
	ID                 uuid.UUID          `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Category           string             `json:"category"`
	DurationDays       int                `json:"duration_days"`
	DailyXPRate        int                `json:"daily_xp_rate"`
	CompletionXPReward int                `json:"completion_xp_reward"`
	Enrollment         *EnrollmentSummary `json:"enrollment,omitempty"`
}

func NewEnrollmentSummary(enr *entity.ChallengeEnrollment, ch *entity.Challenge) EnrollmentSummary {
	summary := EnrollmentSummary{
		ID:                 enr.ID,
		ChallengeID:        enr.ChallengeID,
		Status:             string(enr.Status),
		StartDate:          enr.StartDate.Format(DateLayout),
		CurrentStreak:      enr.CurrentStreak,
		LongestStreak:      enr.LongestStreak,
		DaysLogged:         enr.DaysLogged,
		ProgressPercentage: enr.ProgressPercentage,
	}
	if ch != nil {
		summary.ChallengeTitle = ch.Title
		summary.DurationDays = ch.DurationDays
	}
	if enr.CompletedAt != nil {
		completed := enr.CompletedAt.Format(time.RFC3339)
		summary.CompletedAt = &completed
	}
	return summary
}

func NewBadgeSummaries(badges []entity.Badge) []BadgeSummary {
	out := make([]BadgeSummary, 0, len(badges))
	for _, b := range badges {
		out = append(out, BadgeSummary{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			Icon:        b.Icon,
			XPBonus:     b.XPBonus,
		})
	}
	return out
}
