package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"vigorfit.com/progressionengine/internal/entity"
)

// MemberAggregates are the cross-enrollment numbers the badge
// evaluator needs.
type MemberAggregates struct {
	MaxStreak           int
	ChallengesCompleted int
	DaysLogged          int
}

type ChallengeRepository interface {
	FindChallengeByID(tx *gorm.DB, id uuid.UUID) (*entity.Challenge, error)
	ListChallenges(tx *gorm.DB) ([]entity.Challenge, error)
	CreateChallenge(tx *gorm.DB, ch *entity.Challenge) error

	// FindEnrollmentForUpdate takes a row lock: record-day and undo-day
	// for the same (member, challenge) serialize on it.
	FindEnrollment(tx *gorm.DB, memberID, challengeID uuid.UUID) (*entity.ChallengeEnrollment, error)
	FindEnrollmentForUpdate(tx *gorm.DB, memberID, challengeID uuid.UUID) (*entity.ChallengeEnrollment, error)
	CreateEnrollment(tx *gorm.DB, enr *entity.ChallengeEnrollment) error
	SaveEnrollment(tx *gorm.DB, enr *entity.ChallengeEnrollment) error
	ListEnrollmentsByMember(tx *gorm.DB, memberID uuid.UUID) ([]entity.ChallengeEnrollment, error)

	CreateDayLog(tx *gorm.DB, log *entity.ChallengeDayLog) error
	FindDayLog(tx *gorm.DB, enrollmentID uuid.UUID, date time.Time) (*entity.ChallengeDayLog, error)
	DeleteDayLog(tx *gorm.DB, id uint) error
	DeleteDayLogsForEnrollment(tx *gorm.DB, enrollmentID uuid.UUID) error
	ListDayLogs(tx *gorm.DB, enrollmentID uuid.UUID) ([]entity.ChallengeDayLog, error)

	GetMemberAggregates(tx *gorm.DB, memberID uuid.UUID) (MemberAggregates, error)
}

type challengeRepository struct {
	db *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *challengeRepository) FindChallengeByID(tx *gorm.DB, id uuid.UUID) (*entity.Challenge, error) {
	var ch entity.Challenge
	if err := r.conn(tx).Where("id = ?", id).First(&ch).Error; err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *challengeRepository) ListChallenges(tx *gorm.DB) ([]entity.Challenge, error) {
	var challenges []entity.Challenge
	err := r.conn(tx).Where("is_active = ?", true).Order("created_at ASC").Find(&challenges).Error
	return challenges, err
}

func (r *challengeRepository) CreateChallenge(tx *gorm.DB, ch *entity.Challenge) error {
	return r.conn(tx).Create(ch).Error
}

func (r *challengeRepository) FindEnrollment(tx *gorm.DB, memberID, challengeID uuid.UUID) (*entity.ChallengeEnrollment, error) {
	return r.findEnrollment(r.conn(tx), memberID, challengeID)
}

func (r *challengeRepository) FindEnrollmentForUpdate(tx *gorm.DB, memberID, challengeID uuid.UUID) (*entity.ChallengeEnrollment, error) {
	return r.findEnrollment(r.conn(tx).Clauses(clause.Locking{Strength: "UPDATE"}), memberID, challengeID)
}

func (r *challengeRepository) findEnrollment(db *gorm.DB, memberID, challengeID uuid.UUID) (*entity.ChallengeEnrollment, error) {
	var enr entity.ChallengeEnrollment
	err := db.Where("member_id = ? AND challenge_id = ?", memberID, challengeID).First(&enr).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &enr, nil
}

func (r *challengeRepository) CreateEnrollment(tx *gorm.DB, enr *entity.ChallengeEnrollment) error {
	return r.conn(tx).Create(enr).Error
}

func (r *challengeRepository) SaveEnrollment(tx *gorm.DB, enr *entity.ChallengeEnrollment) error {
	return r.conn(tx).Save(enr).Error
}

func (r *challengeRepository) ListEnrollmentsByMember(tx *gorm.DB, memberID uuid.UUID) ([]entity.ChallengeEnrollment, error) {
	var enrollments []entity.ChallengeEnrollment
	err := r.conn(tx).Preload("Challenge").
		Where("member_id = ?", memberID).
		Order("created_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *challengeRepository) CreateDayLog(tx *gorm.DB, log *entity.ChallengeDayLog) error {
	return r.conn(tx).Create(log).Error
}

func (r *challengeRepository) FindDayLog(tx *gorm.DB, enrollmentID uuid.UUID, date time.Time) (*entity.ChallengeDayLog, error) {
	var log entity.ChallengeDayLog
	err := r.conn(tx).Where("enrollment_id = ? AND activity_date = ?", enrollmentID, date).First(&log).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

func (r *challengeRepository) DeleteDayLog(tx *gorm.DB, id uint) error {
	return r.conn(tx).Delete(&entity.ChallengeDayLog{}, id).Error
}

func (r *challengeRepository) DeleteDayLogsForEnrollment(tx *gorm.DB, enrollmentID uuid.UUID) error {
	return r.conn(tx).Where("enrollment_id = ?", enrollmentID).Delete(&entity.ChallengeDayLog{}).Error
}

func (r *challengeRepository) ListDayLogs(tx *gorm.DB, enrollmentID uuid.UUID) ([]entity.ChallengeDayLog, error) {
	var logs []entity.ChallengeDayLog
	err := r.conn(tx).Where("enrollment_id = ?", enrollmentID).
		Order("activity_date ASC").
		Find(&logs).Error
	return logs, err
}

func (r *challengeRepository) GetMemberAggregates(tx *gorm.DB, memberID uuid.UUID) (MemberAggregates, error) {
	var agg MemberAggregates
	err := r.conn(tx).Model(&entity.ChallengeEnrollment{}).
		Select(
			"COALESCE(MAX(longest_streak), 0) AS max_streak, "+
				"COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS challenges_completed, "+
				"COALESCE(SUM(days_logged), 0) AS days_logged",
		).
		Where("member_id = ?", memberID).
		Scan(&agg).Error
	return agg, err
}
