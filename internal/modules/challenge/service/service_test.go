package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"vigorfit.com/progressionengine/internal/entity"
	badgeRepo "vigorfit.com/progressionengine/internal/modules/badge/repository"
	badgeService "vigorfit.com/progressionengine/internal/modules/badge/service"
	ledgerRepo "vigorfit.com/progressionengine/internal/modules/ledger/repository"
	ledgerService "vigorfit.com/progressionengine/internal/modules/ledger/service"
	challengeRepo "vigorfit.com/progressionengine/internal/modules/challenge/repository"
	rankRepo "vigorfit.com/progressionengine/internal/modules/rank/repository"
	rankService "vigorfit.com/progressionengine/internal/modules/rank/service"
	"vigorfit.com/progressionengine/pkg/apperror"
)

// fakeTx runs the closure directly; the in-memory fakes below have no
// transactional scope to join.
type fakeTx struct{}

func (fakeTx) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	return fc(nil)
}

type memLedgerRepo struct {
	transactions []entity.XpTransaction
	members      map[uuid.UUID]*entity.MemberXp
	nextID       uint
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{members: map[uuid.UUID]*entity.MemberXp{}}
}

func (r *memLedgerRepo) member(id uuid.UUID) *entity.MemberXp {
	if r.members[id] == nil {
		r.members[id] = &entity.MemberXp{MemberID: id}
	}
	return r.members[id]
}

func (r *memLedgerRepo) Insert(tx *gorm.DB, txn *entity.XpTransaction) error {
	r.nextID++
	txn.ID = r.nextID
	r.transactions = append(r.transactions, *txn)
	return nil
}

func (r *memLedgerRepo) SumForMember(tx *gorm.DB, memberID uuid.UUID) (int, error) {
	sum := 0
	for _, t := range r.transactions {
		if t.MemberID == memberID {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (r *memLedgerRepo) CountBySource(tx *gorm.DB, memberID uuid.UUID, sourceType string) (int64, error) {
	var count int64
	for _, t := range r.transactions {
		if t.MemberID == memberID && t.SourceType == sourceType && t.Amount > 0 {
			count++
		}
	}
	return count, nil
}

func (r *memLedgerRepo) LockMemberXp(tx *gorm.DB, memberID uuid.UUID) error {
	r.member(memberID)
	return nil
}

func (r *memLedgerRepo) UpsertMemberTotal(tx *gorm.DB, memberID uuid.UUID, total int) error {
	r.member(memberID).TotalXP = total
	return nil
}

func (r *memLedgerRepo) GetMemberXp(tx *gorm.DB, memberID uuid.UUID) (*entity.MemberXp, error) {
	mx := *r.member(memberID)
	return &mx, nil
}

func (r *memLedgerRepo) ListMismatched(tx *gorm.DB) ([]ledgerRepo.AuditMismatch, error) {
	var out []ledgerRepo.AuditMismatch
	for id, mx := range r.members {
		sum, _ := r.SumForMember(tx, id)
		if sum != mx.TotalXP {
			out = append(out, ledgerRepo.AuditMismatch{MemberID: id, CachedTotal: mx.TotalXP, LedgerSum: sum})
		}
	}
	return out, nil
}

func (r *memLedgerRepo) MarkInconsistent(tx *gorm.DB, memberID uuid.UUID, at time.Time) error {
	r.member(memberID).InconsistentAt = &at
	return nil
}

func (r *memLedgerRepo) TopMembers(tx *gorm.DB, limit int) ([]entity.MemberXp, error) {
	var out []entity.MemberXp
	for _, mx := range r.members {
		out = append(out, *mx)
	}
	return out, nil
}

var _ ledgerRepo.LedgerRepository = (*memLedgerRepo)(nil)

type memRankRepo struct {
	ranks       []entity.Rank
	memberRanks map[uuid.UUID]uint
}

func newMemRankRepo() *memRankRepo {
	return &memRankRepo{
		ranks: []entity.Rank{
			{ID: 1, Name: "Novice", RankOrder: 1, MinXP: 0},
			{ID: 2, Name: "Apprentice", RankOrder: 2, MinXP: 500},
		},
		memberRanks: map[uuid.UUID]uint{},
	}
}

func (r *memRankRepo) ListRanks(tx *gorm.DB) ([]entity.Rank, error) { return r.ranks, nil }

func (r *memRankRepo) GetMemberRankID(tx *gorm.DB, memberID uuid.UUID) (*uint, error) {
	id, ok := r.memberRanks[memberID]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (r *memRankRepo) SetMemberRank(tx *gorm.DB, memberID uuid.UUID, rankID uint, achievedAt time.Time) error {
	r.memberRanks[memberID] = rankID
	return nil
}

var _ rankRepo.RankRepository = (*memRankRepo)(nil)

type memBadgeRepo struct {
	badges []entity.Badge
	held   map[uuid.UUID]map[uuid.UUID]time.Time
}

func newMemBadgeRepo(badges ...entity.Badge) *memBadgeRepo {
	return &memBadgeRepo{badges: badges, held: map[uuid.UUID]map[uuid.UUID]time.Time{}}
}

func (r *memBadgeRepo) ListBadges(tx *gorm.DB) ([]entity.Badge, error) { return r.badges, nil }

func (r *memBadgeRepo) ListMemberBadges(tx *gorm.DB, memberID uuid.UUID) ([]entity.MemberBadge, error) {
	var out []entity.MemberBadge
	for badgeID, at := range r.held[memberID] {
		out = append(out, entity.MemberBadge{MemberID: memberID, BadgeID: badgeID, UnlockedAt: at})
	}
	return out, nil
}

func (r *memBadgeRepo) InsertMemberBadge(tx *gorm.DB, memberID, badgeID uuid.UUID, unlockedAt time.Time) (bool, error) {
	if r.held[memberID] == nil {
		r.held[memberID] = map[uuid.UUID]time.Time{}
	}
	if _, ok := r.held[memberID][badgeID]; ok {
		return false, nil
	}
	r.held[memberID][badgeID] = unlockedAt
	return true, nil
}

var _ badgeRepo.BadgeRepository = (*memBadgeRepo)(nil)

type memChallengeRepo struct {
	challenges  map[uuid.UUID]*entity.Challenge
	enrollments map[uuid.UUID]*entity.ChallengeEnrollment
	dayLogs     map[uint]*entity.ChallengeDayLog
	nextLogID   uint
}

func newMemChallengeRepo() *memChallengeRepo {
	return &memChallengeRepo{
		challenges:  map[uuid.UUID]*entity.Challenge{},
		enrollments: map[uuid.UUID]*entity.ChallengeEnrollment{},
		dayLogs:     map[uint]*entity.ChallengeDayLog{},
	}
}

func (r *memChallengeRepo) addChallenge(ch entity.Challenge) uuid.UUID {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	r.challenges[ch.ID] = &ch
	return ch.ID
}

func (r *memChallengeRepo) FindChallengeByID(tx *gorm.DB, id uuid.UUID) (*entity.Challenge, error) {
	ch, ok := r.challenges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *ch
	return &copied, nil
}

func (r *memChallengeRepo) ListChallenges(tx *gorm.DB) ([]entity.Challenge, error) {
	var out []entity.Challenge
	for _, ch := range r.challenges {
		if ch.IsActive {
			out = append(out, *ch)
		}
	}
	return out, nil
}

func (r *memChallengeRepo) CreateChallenge(tx *gorm.DB, ch *entity.Challenge) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	copied := *ch
	r.challenges[ch.ID] = &copied
	return nil
}

func (r *memChallengeRepo) FindEnrollment(tx *gorm.DB, memberID, challengeID uuid.UUID) (*entity.ChallengeEnrollment, error) {
	for _, enr := range r.enrollments {
		if enr.MemberID == memberID && enr.ChallengeID == challengeID {
			copied := *enr
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memChallengeRepo) FindEnrollmentForUpdate(tx *gorm.DB, memberID, challengeID uuid.UUID) (*entity.ChallengeEnrollment, error) {
	return r.FindEnrollment(tx, memberID, challengeID)
}

func (r *memChallengeRepo) CreateEnrollment(tx *gorm.DB, enr *entity.ChallengeEnrollment) error {
	for _, existing := range r.enrollments {
		if existing.MemberID == enr.MemberID && existing.ChallengeID == enr.ChallengeID {
			return gorm.ErrDuplicatedKey
		}
	}
	if enr.ID == uuid.Nil {
		enr.ID = uuid.New()
	}
	copied := *enr
	r.enrollments[enr.ID] = &copied
	return nil
}

func (r *memChallengeRepo) SaveEnrollment(tx *gorm.DB, enr *entity.ChallengeEnrollment) error {
	copied := *enr
	r.enrollments[enr.ID] = &copied
	return nil
}

func (r *memChallengeRepo) ListEnrollmentsByMember(tx *gorm.DB, memberID uuid.UUID) ([]entity.ChallengeEnrollment, error) {
	var out []entity.ChallengeEnrollment
	for _, enr := range r.enrollments {
		if enr.MemberID == memberID {
			copied := *enr
			if ch, ok := r.challenges[enr.ChallengeID]; ok {
				copied.Challenge = *ch
			}
			out = append(out, copied)
		}
	}
	return out, nil
}

func (r *memChallengeRepo) CreateDayLog(tx *gorm.DB, log *entity.ChallengeDayLog) error {
	for _, existing := range r.dayLogs {
		if existing.EnrollmentID == log.EnrollmentID && existing.ActivityDate.Equal(log.ActivityDate) {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextLogID++
	log.ID = r.nextLogID
	copied := *log
	r.dayLogs[log.ID] = &copied
	return nil
}

func (r *memChallengeRepo) FindDayLog(tx *gorm.DB, enrollmentID uuid.UUID, date time.Time) (*entity.ChallengeDayLog, error) {
	for _, log := range r.dayLogs {
		if log.EnrollmentID == enrollmentID && log.ActivityDate.Equal(date) {
			copied := *log
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memChallengeRepo) DeleteDayLog(tx *gorm.DB, id uint) error {
	delete(r.dayLogs, id)
	return nil
}

func (r *memChallengeRepo) DeleteDayLogsForEnrollment(tx *gorm.DB, enrollmentID uuid.UUID) error {
	for id, log := range r.dayLogs {
		if log.EnrollmentID == enrollmentID {
			delete(r.dayLogs, id)
		}
	}
	return nil
}

func (r *memChallengeRepo) ListDayLogs(tx *gorm.DB, enrollmentID uuid.UUID) ([]entity.ChallengeDayLog, error) {
	var out []entity.ChallengeDayLog
	for _, log := range r.dayLogs {
		if log.EnrollmentID == enrollmentID {
			out = append(out, *log)
		}
	}
	return out, nil
}

func (r *memChallengeRepo) GetMemberAggregates(tx *gorm.DB, memberID uuid.UUID) (challengeRepo.MemberAggregates, error) {
	var agg challengeRepo.MemberAggregates
	for _, enr := range r.enrollments {
		if enr.MemberID != memberID {
			continue
		}
		if enr.LongestStreak > agg.MaxStreak {
			agg.MaxStreak = enr.LongestStreak
		}
		if enr.Status == entity.EnrollmentCompleted {
			agg.ChallengesCompleted++
		}
		agg.DaysLogged += enr.DaysLogged
	}
	return agg, nil
}

var _ challengeRepo.ChallengeRepository = (*memChallengeRepo)(nil)

type fixture struct {
	svc         ChallengeService
	repo        *memChallengeRepo
	ledger      ledgerService.LedgerService
	ledgerStore *memLedgerRepo
	ranks       *memRankRepo
	badges      *memBadgeRepo
}

func newFixture(badges ...entity.Badge) *fixture {
	chRepo := newMemChallengeRepo()
	ldRepo := newMemLedgerRepo()
	rkRepo := newMemRankRepo()
	bdRepo := newMemBadgeRepo(badges...)

	ledger := ledgerService.NewLedgerService(ldRepo)
	ranks := rankService.NewRankService(rkRepo)
	badgeSvc := badgeService.NewBadgeService(bdRepo, ledger)

	return &fixture{
		svc:         NewChallengeService(fakeTx{}, chRepo, ledger, ranks, badgeSvc),
		repo:        chRepo,
		ledger:      ledger,
		ledgerStore: ldRepo,
		ranks:       rkRepo,
		badges:      bdRepo,
	}
}

func (f *fixture) addChallenge(durationDays, dailyRate, completionReward int) uuid.UUID {
	return f.repo.addChallenge(entity.Challenge{
		Title:              "Test Challenge",
		Category:           "training",
		DurationDays:       durationDays,
		DailyXPRate:        dailyRate,
		CompletionXPReward: completionReward,
		IsActive:           true,
	})
}

func daysAgo(n int) time.Time {
	return normalizeDate(time.Now().UTC()).AddDate(0, 0, -n)
}

func TestEnroll(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	summary, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)
	assert.Equal(t, "active", summary.Status)
	assert.Equal(t, 0, summary.DaysLogged)
	assert.Equal(t, 30, summary.DurationDays)
}

func TestEnrollTwiceConflicts(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)

	_, err = f.svc.Enroll(context.Background(), memberID, challengeID)
	assert.ErrorIs(t, err, apperror.ErrAlreadyEnrolled)
}

func TestEnrollUnknownChallenge(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Enroll(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestEnrollInactiveChallenge(t *testing.T) {
	f := newFixture()
	challengeID := f.repo.addChallenge(entity.Challenge{Title: "Retired", DurationDays: 7, DailyXPRate: 5, IsActive: false})

	_, err := f.svc.Enroll(context.Background(), uuid.New(), challengeID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRecordDayStreakScaling(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)

	// Three consecutive days pay 10, 20, 30.
	for i, want := range []int{10, 20, 30} {
		resp, err := f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(2-i), "")
		require.NoError(t, err)
		assert.Equal(t, want, resp.XPEarned)
		assert.Equal(t, i+1, resp.Enrollment.CurrentStreak)
	}

	total, err := f.ledger.TotalFor(nil, memberID)
	require.NoError(t, err)
	assert.Equal(t, 60, total)
}

func TestRecordDayGapResetsStreak(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)

	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(5), "")
	require.NoError(t, err)

	resp, err := f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(0), "")
	require.NoError(t, err)
	assert.Equal(t, 10, resp.XPEarned, "gap drops the run back to 1")
	assert.Equal(t, 1, resp.Enrollment.CurrentStreak)
	assert.Equal(t, 2, resp.Enrollment.DaysLogged)
}

func TestRecordDayBackfillBridgesRuns(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)

	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(2), "")
	require.NoError(t, err)
	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(0), "")
	require.NoError(t, err)

	// Backfilling the middle day pays for a 2-day run ending at it, and
	// the recomputed current streak covers all three days.
	resp, err := f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(1), "")
	require.NoError(t, err)
	assert.Equal(t, 20, resp.XPEarned)
	assert.Equal(t, 3, resp.Enrollment.CurrentStreak)
}

func TestRecordDayDuplicateConflicts(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)

	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(0), "")
	require.NoError(t, err)

	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(0), "")
	assert.ErrorIs(t, err, apperror.ErrAlreadyLogged)

	total, err := f.ledger.TotalFor(nil, memberID)
	require.NoError(t, err)
	assert.Equal(t, 10, total, "rejected duplicate must not move the ledger")
}

func TestRecordDayFutureDateRejected(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)

	tomorrow := normalizeDate(time.Now().UTC()).AddDate(0, 0, 1)
	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, tomorrow, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestRecordDayWithoutEnrollment(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)

	_, err := f.svc.RecordDay(context.Background(), uuid.New(), challengeID, daysAgo(0), "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCompletionScenario(t *testing.T) {
	// 5-day challenge at 10 XP/day with a 50 XP completion reward:
	// 10+20+30+40+50 days + 50 reward = 200 total.
	f := newFixture()
	challengeID := f.addChallenge(5, 10, 50)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)

	var last *dtoRecordDay
	for i := 4; i >= 0; i-- {
		resp, err := f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(i), "")
		require.NoError(t, err)
		last = &dtoRecordDay{resp.Enrollment.Status, resp.TotalXP, resp.Enrollment.ProgressPercentage}
	}

	assert.Equal(t, "completed", last.status)
	assert.Equal(t, 200, last.totalXP)
	assert.Equal(t, 100, last.progress)
}

type dtoRecordDay struct {
	status   string
	totalXP  int
	progress int
}

func TestUndoLastDayRevertsCompletion(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(5, 10, 50)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)
	for i := 4; i >= 0; i-- {
		_, err := f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(i), "")
		require.NoError(t, err)
	}

	resp, err := f.svc.UndoDay(context.Background(), memberID, challengeID, daysAgo(0))
	require.NoError(t, err)

	// Day 5 paid 50 and triggered the 50 reward; both come back.
	assert.Equal(t, 100, resp.XPReversed)
	assert.Equal(t, 100, resp.TotalXP)
	assert.Equal(t, "active", resp.Enrollment.Status)
	assert.Equal(t, 4, resp.Enrollment.CurrentStreak)
	assert.Equal(t, 80, resp.Enrollment.ProgressPercentage)
	assert.Nil(t, resp.Enrollment.CompletedAt)
}

func TestUndoMiddleDayReversesOnlyThatLog(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)
	for i := 2; i >= 0; i-- {
		_, err := f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(i), "")
		require.NoError(t, err)
	}

	// The middle day paid 20 when it was logged. Undoing it reverses
	// exactly those 20; later days keep the XP they were paid.
	resp, err := f.svc.UndoDay(context.Background(), memberID, challengeID, daysAgo(1))
	require.NoError(t, err)
	assert.Equal(t, 20, resp.XPReversed)
	assert.Equal(t, 40, resp.TotalXP)
	assert.Equal(t, 1, resp.Enrollment.CurrentStreak, "remaining days are no longer contiguous")
	assert.Equal(t, 2, resp.Enrollment.DaysLogged)
}

func TestUndoUnknownDay(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)

	_, err = f.svc.UndoDay(context.Background(), memberID, challengeID, daysAgo(0))
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRecordThenUndoIsIdentity(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)
	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(1), "")
	require.NoError(t, err)

	before, err := f.repo.FindEnrollment(nil, memberID, challengeID)
	require.NoError(t, err)
	totalBefore, err := f.ledger.TotalFor(nil, memberID)
	require.NoError(t, err)
	rankBefore := f.ranks.memberRanks[memberID]

	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(0), "")
	require.NoError(t, err)
	_, err = f.svc.UndoDay(context.Background(), memberID, challengeID, daysAgo(0))
	require.NoError(t, err)

	after, err := f.repo.FindEnrollment(nil, memberID, challengeID)
	require.NoError(t, err)
	totalAfter, err := f.ledger.TotalFor(nil, memberID)
	require.NoError(t, err)

	assert.Equal(t, totalBefore, totalAfter)
	assert.Equal(t, before.CurrentStreak, after.CurrentStreak)
	assert.Equal(t, before.LongestStreak, after.LongestStreak)
	assert.Equal(t, before.DaysLogged, after.DaysLogged)
	assert.Equal(t, before.ProgressPercentage, after.ProgressPercentage)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, rankBefore, f.ranks.memberRanks[memberID])
}

func TestUndoAppendsReversalInsteadOfDeleting(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)
	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(0), "")
	require.NoError(t, err)
	_, err = f.svc.UndoDay(context.Background(), memberID, challengeID, daysAgo(0))
	require.NoError(t, err)

	require.Len(t, f.ledgerStore.transactions, 2, "original entry stays, reversal is appended")
	assert.Equal(t, 10, f.ledgerStore.transactions[0].Amount)
	assert.Equal(t, -10, f.ledgerStore.transactions[1].Amount)
}

func TestBadgeUnlockedOnStreak(t *testing.T) {
	badge := entity.Badge{
		ID:            uuid.New(),
		Name:          "Week Warrior",
		CriteriaType:  entity.CriteriaStreak,
		CriteriaValue: 3,
		XPBonus:       25,
	}
	f := newFixture(badge)
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)

	var unlockedAt int
	for i := 2; i >= 0; i-- {
		resp, err := f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(i), "")
		require.NoError(t, err)
		if len(resp.NewlyUnlockedBadges) > 0 {
			unlockedAt = 3 - i
			assert.Equal(t, "Week Warrior", resp.NewlyUnlockedBadges[0].Name)
			// The bonus lands in the same response total.
			assert.Equal(t, 10+20+30+25, resp.TotalXP)
		}
	}
	assert.Equal(t, 3, unlockedAt, "badge unlocks on the day the streak hits 3")
}

func TestReEnrollAfterAbandonmentResets(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)
	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(0), "")
	require.NoError(t, err)

	// Abandon out of band, as the lifecycle sweeper would.
	enr, err := f.repo.FindEnrollment(nil, memberID, challengeID)
	require.NoError(t, err)
	enr.Status = entity.EnrollmentAbandoned
	require.NoError(t, f.repo.SaveEnrollment(nil, enr))

	summary, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)
	assert.Equal(t, "active", summary.Status)
	assert.Equal(t, 0, summary.DaysLogged)
	assert.Equal(t, 0, summary.CurrentStreak)

	// Earned XP is not clawed back on reset.
	total, err := f.ledger.TotalFor(nil, memberID)
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	logs, err := f.repo.ListDayLogs(nil, enr.ID)
	require.NoError(t, err)
	assert.Empty(t, logs, "old day logs are cleared for a clean replay")
}

func TestReEnrollCompletedConflicts(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(1, 10, 0)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)
	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(0), "")
	require.NoError(t, err)

	_, err = f.svc.Enroll(context.Background(), memberID, challengeID)
	assert.ErrorIs(t, err, apperror.ErrChallengeCompleted)
}

func TestWritesBlockedWhenLedgerInconsistent(t *testing.T) {
	f := newFixture()
	challengeID := f.addChallenge(30, 10, 300)
	memberID := uuid.New()

	_, err := f.svc.Enroll(context.Background(), memberID, challengeID)
	require.NoError(t, err)

	require.NoError(t, f.ledgerStore.MarkInconsistent(nil, memberID, time.Now().UTC()))

	_, err = f.svc.RecordDay(context.Background(), memberID, challengeID, daysAgo(0), "")
	assert.ErrorIs(t, err, apperror.ErrLedgerInconsistent)
}
