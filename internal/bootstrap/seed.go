package bootstrap

import (
	"gorm.io/gorm"
	"vigorfit.com/progressionengine/internal/entity"
	"vigorfit.com/progressionengine/pkg/logger"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Rank{},
		&entity.Badge{},
		&entity.MemberBadge{},
		&entity.Challenge{},
		&entity.ChallengeEnrollment{},
		&entity.ChallengeDayLog{},
		&entity.XpTransaction{},
		&entity.MemberXp{},
	)
}

// SeedRanks installs the threshold table. The lowest rank must sit at
// 0 XP so every member always holds a rank.
func SeedRanks(db *gorm.DB) error {
	defaultRanks := []entity.Rank{
		{Name: "Novice", RankOrder: 1, MinXP: 0},
		{Name: "Apprentice", RankOrder: 2, MinXP: 500},
		{Name: "Adept", RankOrder: 3, MinXP: 2000},
		{Name: "Veteran", RankOrder: 4, MinXP: 6000},
		{Name: "Elite", RankOrder: 5, MinXP: 15000},
		{Name: "Legend", RankOrder: 6, MinXP: 40000},
	}

	for _, rank := range defaultRanks {
		var count int64
		if err := db.Model(&entity.Rank{}).
			Where("name = ?", rank.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&rank).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

func SeedBadges(db *gorm.DB) error {
	defaultBadges := []entity.Badge{
		{Name: "Week Warrior", Description: "Hold a 7-day streak", Icon: "flame", CriteriaType: entity.CriteriaStreak, CriteriaValue: 7, XPBonus: 50},
		{Name: "Iron Month", Description: "Hold a 30-day streak", Icon: "flame-gold", CriteriaType: entity.CriteriaStreak, CriteriaValue: 30, XPBonus: 250},
		{Name: "Rising Star", Description: "Reach 1000 total XP", Icon: "star", CriteriaType: entity.CriteriaTotalXP, CriteriaValue: 1000, XPBonus: 0},
		{Name: "Powerhouse", Description: "Reach 10000 total XP", Icon: "star-gold", CriteriaType: entity.CriteriaTotalXP, CriteriaValue: 10000, XPBonus: 0},
		{Name: "Finisher", Description: "Complete your first challenge", Icon: "trophy", CriteriaType: entity.CriteriaChallengesCompleted, CriteriaValue: 1, XPBonus: 100},
		{Name: "Serial Finisher", Description: "Complete 5 challenges", Icon: "trophy-gold", CriteriaType: entity.CriteriaChallengesCompleted, CriteriaValue: 5, XPBonus: 300},
		{Name: "Fifty Club", Description: "Log 50 challenge days", Icon: "calendar", CriteriaType: entity.CriteriaDaysLogged, CriteriaValue: 50, XPBonus: 150},
		{Name: "Scholar", Description: "Complete 10 lessons", Icon: "book", CriteriaType: entity.CriteriaLessonsCompleted, CriteriaValue: 10, XPBonus: 100},
	}

	for _, badge := range defaultBadges {
		var count int64
		if err := db.Model(&entity.Badge{}).
			Where("name = ?", badge.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&badge).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// SeedChallenges installs a starter catalog for local development.
// Production catalogs are managed through the admin API.
func SeedChallenges(db *gorm.DB) error {
	devChallenges := []entity.Challenge{
		{Title: "30-Day Consistency", Description: "Train every day for 30 days", Category: "training", DurationDays: 30, DailyXPRate: 10, CompletionXPReward: 300, IsActive: true},
		{Title: "Hydration Week", Description: "Hit your water target for 7 days", Category: "nutrition", DurationDays: 7, DailyXPRate: 5, CompletionXPReward: 50, IsActive: true},
		{Title: "Mindful Mornings", Description: "Meditate 14 mornings in a row", Category: "mindset", DurationDays: 14, DailyXPRate: 8, CompletionXPReward: 120, IsActive: true},
	}

	for _, challenge := range devChallenges {
		var count int64
		if err := db.Model(&entity.Challenge{}).
			Where("title = ?", challenge.Title).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&challenge).Error; err != nil {
				return err
			}
			logger.L().Infow("seeded dev challenge", "title", challenge.Title)
		}
	}

	return nil
}
