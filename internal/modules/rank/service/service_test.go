package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"vigorfit.com/progressionengine/internal/entity"
)

type fakeRankRepo struct {
	ranks       []entity.Rank
	memberRanks map[uuid.UUID]uint
	setCalls    int
	listErrs    int
}

func newFakeRankRepo(ranks []entity.Rank) *fakeRankRepo {
	return &fakeRankRepo{ranks: ranks, memberRanks: map[uuid.UUID]uint{}}
}

func (f *fakeRankRepo) ListRanks(tx *gorm.DB) ([]entity.Rank, error) {
	if f.listErrs > 0 {
		f.listErrs--
		return nil, errors.New("connection refused")
	}
	return f.ranks, nil
}

func (f *fakeRankRepo) GetMemberRankID(tx *gorm.DB, memberID uuid.UUID) (*uint, error) {
	id, ok := f.memberRanks[memberID]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (f *fakeRankRepo) SetMemberRank(tx *gorm.DB, memberID uuid.UUID, rankID uint, achievedAt time.Time) error {
	f.memberRanks[memberID] = rankID
	f.setCalls++
	return nil
}

func testRanks() []entity.Rank {
	return []entity.Rank{
		{ID: 1, Name: "Novice", RankOrder: 1, MinXP: 0},
		{ID: 2, Name: "Apprentice", RankOrder: 2, MinXP: 500},
		{ID: 3, Name: "Adept", RankOrder: 3, MinXP: 2000},
		{ID: 4, Name: "Legend", RankOrder: 4, MinXP: 40000},
	}
}

func TestRankForBoundaries(t *testing.T) {
	svc := NewRankService(newFakeRankRepo(testRanks()))

	cases := []struct {
		totalXP int
		want    string
	}{
		{0, "Novice"},
		{499, "Novice"},
		{500, "Apprentice"},
		{1999, "Apprentice"},
		{2000, "Adept"},
		{39999, "Adept"},
		{40000, "Legend"},
		{1000000, "Legend"},
	}
	for _, tc := range cases {
		rank, err := svc.RankFor(tc.totalXP)
		require.NoError(t, err)
		assert.Equal(t, tc.want, rank.Name, "total=%d", tc.totalXP)
	}
}

func TestRankForEmptyTable(t *testing.T) {
	svc := NewRankService(newFakeRankRepo(nil))

	_, err := svc.RankFor(100)
	assert.Error(t, err)
}

func TestRankForBadLowestThreshold(t *testing.T) {
	svc := NewRankService(newFakeRankRepo([]entity.Rank{
		{ID: 1, Name: "Bronze", RankOrder: 1, MinXP: 100},
	}))

	_, err := svc.RankFor(100)
	assert.Error(t, err)
}

func TestRankForRetriesAfterLoadError(t *testing.T) {
	repo := newFakeRankRepo(testRanks())
	repo.listErrs = 1
	svc := NewRankService(repo)

	_, err := svc.RankFor(100)
	require.Error(t, err)

	// A failed load must not be cached: the next call reloads the table.
	rank, err := svc.RankFor(100)
	require.NoError(t, err)
	assert.Equal(t, "Novice", rank.Name)
}

func TestStatusFor(t *testing.T) {
	svc := NewRankService(newFakeRankRepo(testRanks()))

	status, err := svc.StatusFor(250)
	require.NoError(t, err)
	assert.Equal(t, "Novice", status.Current.Name)
	assert.Equal(t, "Apprentice", status.Next.Name)
	assert.Equal(t, 500, status.TargetPoints)
	assert.Equal(t, 50.0, status.Progress)
}

func TestStatusForTopRank(t *testing.T) {
	svc := NewRankService(newFakeRankRepo(testRanks()))

	status, err := svc.StatusFor(50000)
	require.NoError(t, err)
	assert.Equal(t, "Legend", status.Current.Name)
	assert.Nil(t, status.Next)
	assert.Equal(t, 100.0, status.Progress)
}

func TestAssignPromotesAndIsIdempotent(t *testing.T) {
	repo := newFakeRankRepo(testRanks())
	svc := NewRankService(repo)
	memberID := uuid.New()

	rank, err := svc.Assign(nil, memberID, 600)
	require.NoError(t, err)
	assert.Equal(t, "Apprentice", rank.Name)
	assert.Equal(t, 1, repo.setCalls)

	// Same total again: no write.
	rank, err = svc.Assign(nil, memberID, 700)
	require.NoError(t, err)
	assert.Equal(t, "Apprentice", rank.Name)
	assert.Equal(t, 1, repo.setCalls)
}

func TestAssignDemotesAfterXPDrop(t *testing.T) {
	repo := newFakeRankRepo(testRanks())
	svc := NewRankService(repo)
	memberID := uuid.New()

	_, err := svc.Assign(nil, memberID, 2500)
	require.NoError(t, err)

	rank, err := svc.Assign(nil, memberID, 1500)
	require.NoError(t, err)
	assert.Equal(t, "Apprentice", rank.Name)
	assert.Equal(t, uint(2), repo.memberRanks[memberID])
}
