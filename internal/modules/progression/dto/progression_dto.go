package dto

import (
	"github.com/google/uuid"
	challengeDto "vigorfit.com/progressionengine/internal/modules/challenge/dto"
)

type RankStatusResponse struct {
	Name         string  `json:"name"`
	NextName     string  `json:"next_name"` // "Max Rank" at the top
	TargetPoints int     `json:"target_points"`
	Progress     float64 `json:"progress"`
}

type EarnedBadge struct {
	challengeDto.BadgeSummary
	UnlockedAt string `json:"unlocked_at"`
}

type ProgressionSummary struct {
	MemberID    uuid.UUID                        `json:"member_id"`
	TotalXP     int                              `json:"total_xp"`
	Rank        RankStatusResponse               `json:"rank"`
	Enrollments []challengeDto.EnrollmentSummary `json:"enrollments"`
	Badges      []EarnedBadge                    `json:"badges"`
}

type LeaderboardEntry struct {
	Position int       `json:"position"` // 1-based
	MemberID uuid.UUID `json:"member_id"`
	TotalXP  int       `json:"total_xp"`
	RankName string    `json:"rank_name"`
}

// GrantRequest is the integration contract for subsystems that award
// XP for non-challenge activity (lesson/mission hooks, onboarding).
type GrantRequest struct {
	MemberID   string  `json:"member_id" binding:"required,uuid"`
	Amount     int     `json:"amount" binding:"required,gt=0"`
	SourceType string  `json:"source_type" binding:"required,oneof=lesson mission initial_setup"`
	SourceID   *string `json:"source_id"`
}

type GrantResponse struct {
	TotalXP             int                         `json:"total_xp"`
	RankName            string                      `json:"rank_name"`
	NewlyUnlockedBadges []challengeDto.BadgeSummary `json:"newly_unlocked_badges"`
}
