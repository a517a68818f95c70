package service

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"vigorfit.com/progressionengine/internal/entity"
	rankRepo "vigorfit.com/progressionengine/internal/modules/rank/repository"
	"vigorfit.com/progressionengine/pkg/metrics"
)

// RankStatus describes where a total sits in the threshold table,
// including progress toward the next rank for display.
type RankStatus struct {
	Current      *entity.Rank `json:"current"`
	Next         *entity.Rank `json:"next"` // nil at the top rank
	TargetPoints int          `json:"target_points"`
	Progress     float64      `json:"progress"` // 0-100 toward next rank
}

// RankService assigns rank as a pure function of total XP. Rank is a
// derived view, not a ratchet: totals can drop after an undo and the
// member de-promotes accordingly.
type RankService interface {
	RankFor(totalXP int) (*entity.Rank, error)
	StatusFor(totalXP int) (RankStatus, error)
	Assign(tx *gorm.DB, memberID uuid.UUID, totalXP int) (*entity.Rank, error)
}

type rankService struct {
	repo rankRepo.RankRepository

	mu    sync.Mutex
	ranks []entity.Rank // ascending by rank_order; read-only catalog
}

func NewRankService(repo rankRepo.RankRepository) RankService {
	return &rankService{repo: repo}
}

// table loads the threshold catalog on first use. Ranks are seeded
// reference data and never change at runtime, so only a successful
// load is cached; a transient DB error on the first call is retried on
// the next.
func (s *rankService) table() ([]entity.Rank, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ranks != nil {
		return s.ranks, nil
	}

	ranks, err := s.repo.ListRanks(nil)
	if err != nil {
		return nil, err
	}
	if len(ranks) == 0 {
		return nil, fmt.Errorf("rank table is empty; seed ranks before serving")
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i].RankOrder < ranks[j].RankOrder })
	if ranks[0].MinXP != 0 {
		return nil, fmt.Errorf("lowest rank %q must start at 0 xp", ranks[0].Name)
	}

	s.ranks = ranks
	return s.ranks, nil
}

func (s *rankService) RankFor(totalXP int) (*entity.Rank, error) {
	ranks, err := s.table()
	if err != nil {
		return nil, err
	}

	// Highest rank whose threshold is covered.
	current := ranks[0]
	for _, r := range ranks {
		if totalXP >= r.MinXP {
			current = r
		}
	}
	return &current, nil
}

func (s *rankService) StatusFor(totalXP int) (RankStatus, error) {
	ranks, err := s.table()
	if err != nil {
		return RankStatus{}, err
	}

	current, err := s.RankFor(totalXP)
	if err != nil {
		return RankStatus{}, err
	}

	status := RankStatus{Current: current}
	for i, r := range ranks {
		if r.ID == current.ID && i+1 < len(ranks) {
			next := ranks[i+1]
			status.Next = &next
			status.TargetPoints = next.MinXP
			status.Progress = float64(totalXP) / float64(next.MinXP) * 100
			break
		}
	}
	if status.Next == nil {
		status.TargetPoints = current.MinXP
		status.Progress = 100
	}

	status.Progress = math.Round(status.Progress*100) / 100
	return status, nil
}

// Assign persists the rank for totalXP when it differs from the stored
// one. Calling it twice with the same total is a no-op the second time.
// Returns the rank the member now holds.
func (s *rankService) Assign(tx *gorm.DB, memberID uuid.UUID, totalXP int) (*entity.Rank, error) {
	target, err := s.RankFor(totalXP)
	if err != nil {
		return nil, err
	}

	currentID, err := s.repo.GetMemberRankID(tx, memberID)
	if err != nil {
		return nil, err
	}
	if currentID != nil && *currentID == target.ID {
		return target, nil
	}

	if err := s.repo.SetMemberRank(tx, memberID, target.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	direction := "up"
	if currentID != nil {
		if prev := s.rankByID(*currentID); prev != nil && prev.RankOrder > target.RankOrder {
			direction = "down"
		}
	}
	metrics.RankChanges.WithLabelValues(direction).Inc()

	return target, nil
}

func (s *rankService) rankByID(id uint) *entity.Rank {
	ranks, err := s.table()
	if err != nil {
		return nil
	}
	for _, r := range ranks {
		if r.ID == id {
			return &r
		}
	}
	return nil
}
