package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"vigorfit.com/progressionengine/internal/entity"
)

// AuditMismatch pairs a cached total with the ledger sum computed in
// the same SQL statement, so both numbers come from one snapshot.
type AuditMismatch struct {
	MemberID    uuid.UUID
	CachedTotal int
	LedgerSum   int
}

// LedgerRepository is append-only on xp_transactions: there is no
// update or delete method, corrections are new rows.
type LedgerRepository interface {
	Insert(tx *gorm.DB, txn *entity.XpTransaction) error
	SumForMember(tx *gorm.DB, memberID uuid.UUID) (int, error)
	CountBySource(tx *gorm.DB, memberID uuid.UUID, sourceType string) (int64, error)
	// LockMemberXp creates the member's row if missing and takes a FOR
	// UPDATE lock on it, serializing same-member ledger writes for the
	// rest of the transaction.
	LockMemberXp(tx *gorm.DB, memberID uuid.UUID) error
	UpsertMemberTotal(tx *gorm.DB, memberID uuid.UUID, total int) error
	GetMemberXp(tx *gorm.DB, memberID uuid.UUID) (*entity.MemberXp, error)
	ListMismatched(tx *gorm.DB) ([]AuditMismatch, error)
	MarkInconsistent(tx *gorm.DB, memberID uuid.UUID, at time.Time) error
	TopMembers(tx *gorm.DB, limit int) ([]entity.MemberXp, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// conn returns the transaction handle when one is in flight, so every
// write joins the caller's atomic scope.
func (r *ledgerRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *ledgerRepository) Insert(tx *gorm.DB, txn *entity.XpTransaction) error {
	return r.conn(tx).Create(txn).Error
}

func (r *ledgerRepository) SumForMember(tx *gorm.DB, memberID uuid.UUID) (int, error) {
	var total int
	err := r.conn(tx).Model(&entity.XpTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("member_id = ?", memberID).
		Scan(&total).Error
	return total, err
}

func (r *ledgerRepository) CountBySource(tx *gorm.DB, memberID uuid.UUID, sourceType string) (int64, error) {
	var count int64
	err := r.conn(tx).Model(&entity.XpTransaction{}).
		Where("member_id = ? AND source_type = ? AND amount > 0", memberID, sourceType).
		Count(&count).Error
	return count, err
}

func (r *ledgerRepository) LockMemberXp(tx *gorm.DB, memberID uuid.UUID) error {
	// Insert-if-missing first: FOR UPDATE on a row that does not exist
	// yet locks nothing, and two first appends would race.
	if err := r.conn(tx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.MemberXp{MemberID: memberID}).Error; err != nil {
		return err
	}

	var mx entity.MemberXp
	return r.conn(tx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ?", memberID).
		First(&mx).Error
}

func (r *ledgerRepository) UpsertMemberTotal(tx *gorm.DB, memberID uuid.UUID, total int) error {
	return r.conn(tx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "member_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_xp":   total,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&entity.MemberXp{
		MemberID: memberID,
		TotalXP:  total,
	}).Error
}

func (r *ledgerRepository) GetMemberXp(tx *gorm.DB, memberID uuid.UUID) (*entity.MemberXp, error) {
	var mx entity.MemberXp
	err := r.conn(tx).Preload("CurrentRank").Where("member_id = ?", memberID).First(&mx).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// Members with no ledger activity yet read as zero.
			return &entity.MemberXp{MemberID: memberID}, nil
		}
		return nil, err
	}
	return &mx, nil
}

const ledgerSumExpr = "(SELECT COALESCE(SUM(amount), 0) FROM xp_transactions WHERE xp_transactions.member_id = member_xp.member_id)"

func (r *ledgerRepository) ListMismatched(tx *gorm.DB) ([]AuditMismatch, error) {
	var rows []AuditMismatch
	err := r.conn(tx).Model(&entity.MemberXp{}).
		Select("member_id, total_xp AS cached_total, " + ledgerSumExpr + " AS ledger_sum").
		Where("total_xp <> " + ledgerSumExpr).
		Scan(&rows).Error
	return rows, err
}

func (r *ledgerRepository) MarkInconsistent(tx *gorm.DB, memberID uuid.UUID, at time.Time) error {
	return r.conn(tx).Model(&entity.MemberXp{}).
		Where("member_id = ?", memberID).
		Update("inconsistent_at", at).Error
}

func (r *ledgerRepository) TopMembers(tx *gorm.DB, limit int) ([]entity.MemberXp, error) {
	var rows []entity.MemberXp
	err := r.conn(tx).Preload("CurrentRank").
		Order("total_xp DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
