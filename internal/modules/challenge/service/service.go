package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"vigorfit.com/progressionengine/internal/entity"
	"vigorfit.com/progressionengine/internal/modules/challenge/dto"
	challengeRepo "vigorfit.com/progressionengine/internal/modules/challenge/repository"
	badgeService "vigorfit.com/progressionengine/internal/modules/badge/service"
	ledgerService "vigorfit.com/progressionengine/internal/modules/ledger/service"
	rankService "vigorfit.com/progressionengine/internal/modules/rank/service"
	"vigorfit.com/progressionengine/pkg/apperror"
	"vigorfit.com/progressionengine/pkg/logger"
)

// txRunner is satisfied by *gorm.DB; tests substitute a fake that runs
// the closure without a database.
type txRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// ChallengeService owns the per-member, per-challenge enrollment state
// machine. Every mutating operation runs as one transaction holding a
// row lock on the enrollment: the day log, the ledger appends, the
// cached-total recompute, the badge grants and the rank update commit
// or roll back together, so no reader ever observes a partial update.
type ChallengeService interface {
	Enroll(ctx context.Context, memberID, challengeID uuid.UUID) (*dto.EnrollmentSummary, error)
	RecordDay(ctx context.Context, memberID, challengeID uuid.UUID, activityDate time.Time, notes string) (*dto.RecordDayResponse, error)
	UndoDay(ctx context.Context, memberID, challengeID uuid.UUID, activityDate time.Time) (*dto.UndoDayResponse, error)

	ListCatalog(ctx context.Context, memberID uuid.UUID) ([]dto.CatalogEntry, error)
	CreateChallenge(ctx context.Context, input dto.CreateChallengeInput) (*entity.Challenge, error)

	// AssembleStats builds the badge evaluation snapshot from the
	// lifecycle aggregates and the ledger; the facade uses it for
	// non-challenge XP grants too.
	AssembleStats(tx *gorm.DB, memberID uuid.UUID, totalXP int) (badgeService.Stats, error)
}

type challengeService struct {
	db     txRunner
	repo   challengeRepo.ChallengeRepository
	ledger ledgerService.LedgerService
	ranks  rankService.RankService
	badges badgeService.BadgeService
}

func NewChallengeService(
	db txRunner,
	repo challengeRepo.ChallengeRepository,
	ledger ledgerService.LedgerService,
	ranks rankService.RankService,
	badges badgeService.BadgeService,
) ChallengeService {
	return &challengeService{
		db:     db,
		repo:   repo,
		ledger: ledger,
		ranks:  ranks,
		badges: badges,
	}
}

func (s *challengeService) Enroll(ctx context.Context, memberID, challengeID uuid.UUID) (*dto.EnrollmentSummary, error) {
	var summary dto.EnrollmentSummary

	err := s.db.Transaction(func(tx *gorm.DB) error {
		challenge, err := s.findActiveChallenge(tx, challengeID)
		if err != nil {
			return err
		}

		if err := s.ledger.EnsureWritable(tx, memberID); err != nil {
			return err
		}

		enr, err := s.repo.FindEnrollmentForUpdate(tx, memberID, challengeID)
		if err != nil {
			return err
		}

		today := normalizeDate(time.Now().UTC())

		if enr == nil {
			enr = &entity.ChallengeEnrollment{
				MemberID:    memberID,
				ChallengeID: challengeID,
				Status:      entity.EnrollmentActive,
				StartDate:   today,
			}
			if err := s.repo.CreateEnrollment(tx, enr); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperror.ErrAlreadyEnrolled
				}
				return err
			}
			summary = dto.NewEnrollmentSummary(enr, challenge)
			return nil
		}

		switch enr.Status {
		case entity.EnrollmentActive:
			return apperror.ErrAlreadyEnrolled
		case entity.EnrollmentCompleted:
			return apperror.ErrChallengeCompleted
		}

		// Re-enrollment after abandonment: streak and progress reset,
		// previously earned XP stays on the ledger.
		if err := s.repo.DeleteDayLogsForEnrollment(tx, enr.ID); err != nil {
			return err
		}
		enr.Status = entity.EnrollmentActive
		enr.StartDate = today
		enr.CurrentStreak = 0
		enr.LongestStreak = 0
		enr.DaysLogged = 0
		enr.ProgressPercentage = 0
		enr.CompletedAt = nil
		if err := s.repo.SaveEnrollment(tx, enr); err != nil {
			return err
		}

		summary = dto.NewEnrollmentSummary(enr, challenge)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Infow("member enrolled", "member_id", memberID, "challenge_id", challengeID)
	return &summary, nil
}

func (s *challengeService) RecordDay(ctx context.Context, memberID, challengeID uuid.UUID, activityDate time.Time, notes string) (*dto.RecordDayResponse, error) {
	day := normalizeDate(activityDate)
	today := normalizeDate(time.Now().UTC())
	if day.IsZero() {
		day = today
	}
	if day.After(today) {
		return nil, apperror.New(400, "activity date cannot be in the future", apperror.ErrInvalidInput)
	}

	var resp dto.RecordDayResponse

	err := s.db.Transaction(func(tx *gorm.DB) error {
		challenge, err := s.findActiveChallenge(tx, challengeID)
		if err != nil {
			return err
		}

		enr, err := s.repo.FindEnrollmentForUpdate(tx, memberID, challengeID)
		if err != nil {
			return err
		}
		if enr == nil || enr.Status != entity.EnrollmentActive {
			return apperror.ErrNotFound
		}

		if err := s.ledger.EnsureWritable(tx, memberID); err != nil {
			return err
		}

		existing, err := s.repo.FindDayLog(tx, enr.ID, day)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.ErrAlreadyLogged
		}

		logs, err := s.repo.ListDayLogs(tx, enr.ID)
		if err != nil {
			return err
		}
		dates := make([]time.Time, 0, len(logs)+1)
		for _, l := range logs {
			dates = append(dates, normalizeDate(l.ActivityDate))
		}
		dates = append(dates, day)
		sortDates(dates)

		// The reward scales with the contiguous run ending at the
		// logged day: consistency pays more than sporadic completion.
		streakAtDay := streakEndingAt(dates, day)
		xpEarned := streakAtDay * challenge.DailyXPRate

		dayLog := &entity.ChallengeDayLog{
			EnrollmentID: enr.ID,
			ActivityDate: day,
			Completed:    true,
			XPEarned:     xpEarned,
			Notes:        notes,
		}
		if err := s.repo.CreateDayLog(tx, dayLog); err != nil {
			// Concurrent winner already logged this date.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.ErrAlreadyLogged
			}
			return err
		}

		sourceID := fmt.Sprintf("%d", dayLog.ID)
		total, err := s.ledger.Append(tx, memberID, xpEarned, entity.SourceChallengeDay, &sourceID)
		if err != nil {
			return err
		}

		enr.DaysLogged = len(dates)
		enr.CurrentStreak = currentStreak(dates)
		enr.LongestStreak = longestStreak(dates)
		enr.ProgressPercentage = progressPct(len(dates), challenge.DurationDays)

		if enr.DaysLogged >= challenge.DurationDays {
			now := time.Now().UTC()
			enr.Status = entity.EnrollmentCompleted
			enr.CompletedAt = &now

			if challenge.CompletionXPReward > 0 {
				rewardSource := challengeID.String()
				total, err = s.ledger.Append(tx, memberID, challenge.CompletionXPReward, entity.SourceChallengeCompletion, &rewardSource)
				if err != nil {
					return err
				}
			}
			logger.L().Infow("challenge completed", "member_id", memberID, "challenge_id", challengeID)
		}

		if err := s.repo.SaveEnrollment(tx, enr); err != nil {
			return err
		}

		stats, err := s.AssembleStats(tx, memberID, total)
		if err != nil {
			return err
		}
		unlocked, err := s.badges.Evaluate(tx, memberID, stats)
		if err != nil {
			return err
		}
		if len(unlocked) > 0 {
			// Badge bonuses moved the total.
			total, err = s.ledger.TotalFor(tx, memberID)
			if err != nil {
				return err
			}
		}

		rank, err := s.ranks.Assign(tx, memberID, total)
		if err != nil {
			return err
		}

		resp = dto.RecordDayResponse{
			Enrollment:          dto.NewEnrollmentSummary(enr, challenge),
			XPEarned:            xpEarned,
			TotalXP:             total,
			RankName:            rank.Name,
			NewlyUnlockedBadges: dto.NewBadgeSummaries(unlocked),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// UndoDay is the exact inverse of RecordDay: replaying the pair leaves
// streak, progress, total XP, rank and completed-status where they
// started. The original ledger rows are never touched; the reversal is
// a new negative entry.
func (s *challengeService) UndoDay(ctx context.Context, memberID, challengeID uuid.UUID, activityDate time.Time) (*dto.UndoDayResponse, error) {
	day := normalizeDate(activityDate)

	var resp dto.UndoDayResponse

	err := s.db.Transaction(func(tx *gorm.DB) error {
		challenge, err := s.repo.FindChallengeByID(tx, challengeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrNotFound
			}
			return err
		}

		enr, err := s.repo.FindEnrollmentForUpdate(tx, memberID, challengeID)
		if err != nil {
			return err
		}
		if enr == nil {
			return apperror.ErrNotFound
		}

		if err := s.ledger.EnsureWritable(tx, memberID); err != nil {
			return err
		}

		dayLog, err := s.repo.FindDayLog(tx, enr.ID, day)
		if err != nil {
			return err
		}
		if dayLog == nil {
			return apperror.ErrNotFound
		}

		if err := s.repo.DeleteDayLog(tx, dayLog.ID); err != nil {
			return err
		}

		sourceID := fmt.Sprintf("%d", dayLog.ID)
		total, err := s.ledger.Append(tx, memberID, -dayLog.XPEarned, entity.SourceChallengeDay, &sourceID)
		if err != nil {
			return err
		}
		xpReversed := dayLog.XPEarned

		// Completion happens when days_logged reaches duration_days, so
		// removing any day from a completed enrollment drops it back
		// under the threshold: revert and reverse the reward.
		if enr.Status == entity.EnrollmentCompleted {
			if challenge.CompletionXPReward > 0 {
				rewardSource := challengeID.String()
				total, err = s.ledger.Append(tx, memberID, -challenge.CompletionXPReward, entity.SourceChallengeCompletion, &rewardSource)
				if err != nil {
					return err
				}
				xpReversed += challenge.CompletionXPReward
			}
			enr.Status = entity.EnrollmentActive
			enr.CompletedAt = nil
		}

		// Replay the remaining history instead of decrementing in
		// place.
		logs, err := s.repo.ListDayLogs(tx, enr.ID)
		if err != nil {
			return err
		}
		dates := make([]time.Time, 0, len(logs))
		for _, l := range logs {
			dates = append(dates, normalizeDate(l.ActivityDate))
		}
		sortDates(dates)

		enr.DaysLogged = len(dates)
		enr.CurrentStreak = currentStreak(dates)
		enr.LongestStreak = longestStreak(dates)
		enr.ProgressPercentage = progressPct(len(dates), challenge.DurationDays)

		if err := s.repo.SaveEnrollment(tx, enr); err != nil {
			return err
		}

		// Rank is a derived view, not a ratchet: re-evaluate downward.
		rank, err := s.ranks.Assign(tx, memberID, total)
		if err != nil {
			return err
		}

		resp = dto.UndoDayResponse{
			Enrollment: dto.NewEnrollmentSummary(enr, challenge),
			XPReversed: xpReversed,
			TotalXP:    total,
			RankName:   rank.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L().Infow("day log reversed", "member_id", memberID, "challenge_id", challengeID, "date", day.Format(dto.DateLayout))
	return &resp, nil
}

func (s *challengeService) ListCatalog(ctx context.Context, memberID uuid.UUID) ([]dto.CatalogEntry, error) {
	challenges, err := s.repo.ListChallenges(nil)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.repo.ListEnrollmentsByMember(nil, memberID)
	if err != nil {
		return nil, err
	}
	byChallenge := make(map[uuid.UUID]*entity.ChallengeEnrollment, len(enrollments))
	for i := range enrollments {
		byChallenge[enrollments[i].ChallengeID] = &enrollments[i]
	}

	entries := make([]dto.CatalogEntry, 0, len(challenges))
	for i := range challenges {
		ch := challenges[i]
		entry := dto.CatalogEntry{
			ID:                 ch.ID,
			Title:              ch.Title,
			Description:        ch.Description,
			Category:           ch.Category,
			DurationDays:       ch.DurationDays,
			DailyXPRate:        ch.DailyXPRate,
			CompletionXPReward: ch.CompletionXPReward,
		}
		if enr, ok := byChallenge[ch.ID]; ok {
			summary := dto.NewEnrollmentSummary(enr, &ch)
			entry.Enrollment = &summary
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *challengeService) CreateChallenge(ctx context.Context, input dto.CreateChallengeInput) (*entity.Challenge, error) {
	challenge := &entity.Challenge{
		Title:              input.Title,
		Description:        input.Description,
		Category:           input.Category,
		DurationDays:       input.DurationDays,
		DailyXPRate:        input.DailyXPRate,
		CompletionXPReward: input.CompletionXPReward,
		IsActive:           true,
	}
	if err := s.repo.CreateChallenge(nil, challenge); err != nil {
		return nil, err
	}

	logger.L().Infow("challenge created", "challenge_id", challenge.ID, "title", challenge.Title)
	return challenge, nil
}

func (s *challengeService) AssembleStats(tx *gorm.DB, memberID uuid.UUID, totalXP int) (badgeService.Stats, error) {
	agg, err := s.repo.GetMemberAggregates(tx, memberID)
	if err != nil {
		return badgeService.Stats{}, err
	}

	lessons, err := s.ledger.CountBySource(tx, memberID, entity.SourceLesson)
	if err != nil {
		return badgeService.Stats{}, err
	}

	return badgeService.Stats{
		TotalXP:             totalXP,
		MaxStreak:           agg.MaxStreak,
		ChallengesCompleted: agg.ChallengesCompleted,
		DaysLogged:          agg.DaysLogged,
		LessonsCompleted:    int(lessons),
	}, nil
}

func (s *challengeService) findActiveChallenge(tx *gorm.DB, challengeID uuid.UUID) (*entity.Challenge, error) {
	challenge, err := s.repo.FindChallengeByID(tx, challengeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	if !challenge.IsActive {
		return nil, apperror.ErrNotFound
	}
	return challenge, nil
}
