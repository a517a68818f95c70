package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"vigorfit.com/progressionengine/internal/entity"
	ledgerRepo "vigorfit.com/progressionengine/internal/modules/ledger/repository"
	"vigorfit.com/progressionengine/pkg/apperror"
	"vigorfit.com/progressionengine/pkg/logger"
	"vigorfit.com/progressionengine/pkg/metrics"
)

// LedgerService is the only way any part of the product changes a
// member's XP. Append recomputes the cached total from the ledger sum
// inside the caller's transaction, so the cache can never be the source
// of truth.
type LedgerService interface {
	Append(tx *gorm.DB, memberID uuid.UUID, amount int, sourceType string, sourceID *string) (int, error)
	TotalFor(tx *gorm.DB, memberID uuid.UUID) (int, error)
	MemberXp(tx *gorm.DB, memberID uuid.UUID) (*entity.MemberXp, error)
	EnsureWritable(tx *gorm.DB, memberID uuid.UUID) error
	CountBySource(tx *gorm.DB, memberID uuid.UUID, sourceType string) (int64, error)
	TopMembers(limit int) ([]entity.MemberXp, error)
	Audit(ctx context.Context) error
}

type ledgerService struct {
	repo ledgerRepo.LedgerRepository
}

func NewLedgerService(repo ledgerRepo.LedgerRepository) LedgerService {
	return &ledgerService{repo: repo}
}

// reversalSources are the only source types allowed to carry a negative
// amount: undo reversals of day logs and completion rewards.
var reversalSources = map[string]bool{
	entity.SourceChallengeDay:        true,
	entity.SourceChallengeCompletion: true,
}

func (s *ledgerService) Append(tx *gorm.DB, memberID uuid.UUID, amount int, sourceType string, sourceID *string) (int, error) {
	if amount == 0 {
		return 0, apperror.New(400, "amount must be non-zero", apperror.ErrInvalidInput)
	}
	if amount < 0 && !reversalSources[sourceType] {
		return 0, apperror.New(400, "negative amount only allowed for reversals", apperror.ErrInvalidInput)
	}

	// Same-member appends serialize on the member_xp row. The sum below
	// must run after any concurrent append for this member has
	// committed, or the upsert would persist a stale total.
	if err := s.repo.LockMemberXp(tx, memberID); err != nil {
		return 0, err
	}

	txn := &entity.XpTransaction{
		MemberID:   memberID,
		Amount:     amount,
		SourceType: sourceType,
		SourceID:   sourceID,
	}
	if err := s.repo.Insert(tx, txn); err != nil {
		return 0, err
	}

	// Recompute, never increment: the cache must equal the ledger sum
	// at every commit point.
	total, err := s.repo.SumForMember(tx, memberID)
	if err != nil {
		return 0, err
	}
	if err := s.repo.UpsertMemberTotal(tx, memberID, total); err != nil {
		return 0, err
	}

	metrics.XpTransactions.WithLabelValues(sourceType).Inc()
	return total, nil
}

func (s *ledgerService) TotalFor(tx *gorm.DB, memberID uuid.UUID) (int, error) {
	return s.repo.SumForMember(tx, memberID)
}

func (s *ledgerService) MemberXp(tx *gorm.DB, memberID uuid.UUID) (*entity.MemberXp, error) {
	return s.repo.GetMemberXp(tx, memberID)
}

// EnsureWritable refuses members flagged by the audit until the ledger
// is reconciled.
func (s *ledgerService) EnsureWritable(tx *gorm.DB, memberID uuid.UUID) error {
	mx, err := s.repo.GetMemberXp(tx, memberID)
	if err != nil {
		return err
	}
	if mx.InconsistentAt != nil {
		return apperror.ErrLedgerInconsistent
	}
	return nil
}

func (s *ledgerService) CountBySource(tx *gorm.DB, memberID uuid.UUID, sourceType string) (int64, error) {
	return s.repo.CountBySource(tx, memberID, sourceType)
}

func (s *ledgerService) TopMembers(limit int) ([]entity.MemberXp, error) {
	return s.repo.TopMembers(nil, limit)
}

// Audit sweeps every cached total against the ledger sum. Both numbers
// come from one SQL statement, so a legitimate write landing mid-sweep
// cannot read as a mismatch. A real mismatch is a bug somewhere, not a
// user error: it is logged, counted, and the member's writes are frozen
// via inconsistent_at.
func (s *ledgerService) Audit(ctx context.Context) error {
	mismatched, err := s.repo.ListMismatched(nil)
	if err != nil {
		return err
	}

	for _, m := range mismatched {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		metrics.AuditMismatches.Inc()
		logger.L().Errorw("ledger/cache mismatch, freezing member writes",
			"member_id", m.MemberID,
			"ledger_sum", m.LedgerSum,
			"cached_total", m.CachedTotal,
		)
		if err := s.repo.MarkInconsistent(nil, m.MemberID, time.Now().UTC()); err != nil {
			return err
		}
	}

	return nil
}
