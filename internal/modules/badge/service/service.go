package service

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"vigorfit.com/progressionengine/internal/entity"
	badgeRepo "vigorfit.com/progressionengine/internal/modules/badge/repository"
	ledgerService "vigorfit.com/progressionengine/internal/modules/ledger/service"
	"vigorfit.com/progressionengine/pkg/logger"
	"vigorfit.com/progressionengine/pkg/metrics"
)

// Stats is the aggregate snapshot a badge predicate is evaluated
// against. The facade assembles it from the lifecycle manager and the
// ledger before calling Evaluate.
type Stats struct {
	TotalXP             int
	MaxStreak           int
	ChallengesCompleted int
	DaysLogged          int
	LessonsCompleted    int
}

// BadgeService grants badges idempotently. Grants are monotonic
// achievements: stats dropping back under a threshold (after an undo)
// never revokes a badge.
type BadgeService interface {
	Evaluate(tx *gorm.DB, memberID uuid.UUID, stats Stats) ([]entity.Badge, error)
	ListMemberBadges(tx *gorm.DB, memberID uuid.UUID) ([]entity.MemberBadge, error)
}

type badgeService struct {
	repo   badgeRepo.BadgeRepository
	ledger ledgerService.LedgerService
}

func NewBadgeService(repo badgeRepo.BadgeRepository, ledger ledgerService.LedgerService) BadgeService {
	return &badgeService{repo: repo, ledger: ledger}
}

// meetsCriteria dispatches the closed set of predicate kinds. Unknown
// kinds evaluate to false so a bad seed row can never mass-grant.
func meetsCriteria(b entity.Badge, stats Stats) bool {
	switch b.CriteriaType {
	case entity.CriteriaStreak:
		return stats.MaxStreak >= b.CriteriaValue
	case entity.CriteriaTotalXP:
		return stats.TotalXP >= b.CriteriaValue
	case entity.CriteriaChallengesCompleted:
		return stats.ChallengesCompleted >= b.CriteriaValue
	case entity.CriteriaDaysLogged:
		return stats.DaysLogged >= b.CriteriaValue
	case entity.CriteriaLessonsCompleted:
		return stats.LessonsCompleted >= b.CriteriaValue
	default:
		return false
	}
}

func (s *badgeService) Evaluate(tx *gorm.DB, memberID uuid.UUID, stats Stats) ([]entity.Badge, error) {
	catalog, err := s.repo.ListBadges(tx)
	if err != nil {
		return nil, err
	}

	held, err := s.repo.ListMemberBadges(tx, memberID)
	if err != nil {
		return nil, err
	}
	heldSet := make(map[uuid.UUID]bool, len(held))
	for _, mb := range held {
		heldSet[mb.BadgeID] = true
	}

	var unlocked []entity.Badge
	now := time.Now().UTC()

	for _, b := range catalog {
		if heldSet[b.ID] || !meetsCriteria(b, stats) {
			continue
		}

		inserted, err := s.repo.InsertMemberBadge(tx, memberID, b.ID, now)
		if err != nil {
			return nil, err
		}
		if !inserted {
			// A concurrent evaluation won the race; not a new unlock.
			continue
		}

		if b.XPBonus > 0 {
			sourceID := b.ID.String()
			if _, err := s.ledger.Append(tx, memberID, b.XPBonus, entity.SourceBadgeBonus, &sourceID); err != nil {
				return nil, err
			}
		}

		metrics.BadgesUnlocked.Inc()
		logger.L().Infow("badge unlocked", "member_id", memberID, "badge", b.Name)
		unlocked = append(unlocked, b)
	}

	return unlocked, nil
}

func (s *badgeService) ListMemberBadges(tx *gorm.DB, memberID uuid.UUID) ([]entity.MemberBadge, error) {
	return s.repo.ListMemberBadges(tx, memberID)
}
