package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"vigorfit.com/progressionengine/internal/entity"
	badgeService "vigorfit.com/progressionengine/internal/modules/badge/service"
	challengeDto "vigorfit.com/progressionengine/internal/modules/challenge/dto"
	challengeRepo "vigorfit.com/progressionengine/internal/modules/challenge/repository"
	challengeService "vigorfit.com/progressionengine/internal/modules/challenge/service"
	ledgerService "vigorfit.com/progressionengine/internal/modules/ledger/service"
	"vigorfit.com/progressionengine/internal/modules/progression/dto"
	rankService "vigorfit.com/progressionengine/internal/modules/rank/service"
	"vigorfit.com/progressionengine/pkg/apperror"
	"vigorfit.com/progressionengine/pkg/logger"
)

type txRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// SummaryInvalidator is what the write-path handlers need: after a
// successful enroll/record/undo the member's cached summary is stale.
type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context, memberID uuid.UUID)
}

// ProgressionService is the read side of the facade plus the external
// XP grant contract. Summaries are assembled from the ledger cache,
// the rank table, the member's enrollments and earned badges, and
// cached in redis for a short TTL.
type ProgressionService interface {
	SummaryInvalidator

	Summary(ctx context.Context, memberID uuid.UUID) (*dto.ProgressionSummary, error)
	Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error)
	Grant(ctx context.Context, req dto.GrantRequest) (*dto.GrantResponse, error)
}

type progressionService struct {
	db             txRunner
	ledger         ledgerService.LedgerService
	ranks          rankService.RankService
	badges         badgeService.BadgeService
	challenges     challengeService.ChallengeService
	enrollments    challengeRepo.ChallengeRepository
	redisClient    *redis.Client
	summaryTTL     time.Duration
	leaderboardTTL time.Duration
}

func NewProgressionService(
	db txRunner,
	ledger ledgerService.LedgerService,
	ranks rankService.RankService,
	badges badgeService.BadgeService,
	challenges challengeService.ChallengeService,
	enrollments challengeRepo.ChallengeRepository,
	redisClient *redis.Client,
	summaryTTL, leaderboardTTL time.Duration,
) ProgressionService {
	return &progressionService{
		db:             db,
		ledger:         ledger,
		ranks:          ranks,
		badges:         badges,
		challenges:     challenges,
		enrollments:    enrollments,
		redisClient:    redisClient,
		summaryTTL:     summaryTTL,
		leaderboardTTL: leaderboardTTL,
	}
}

func summaryKey(memberID uuid.UUID) string {
	return "progression:summary:" + memberID.String()
}

func (s *progressionService) Summary(ctx context.Context, memberID uuid.UUID) (*dto.ProgressionSummary, error) {
	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, summaryKey(memberID)).Result()
		if err == nil {
			var summary dto.ProgressionSummary
			if json.Unmarshal([]byte(cached), &summary) == nil {
				return &summary, nil
			}
		} else if err != redis.Nil {
			logger.L().Warnw("summary cache read failed", "error", err)
		}
	}

	summary, err := s.buildSummary(memberID)
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.redisClient.SetEx(ctx, summaryKey(memberID), payload, s.summaryTTL).Err(); err != nil {
				logger.L().Warnw("summary cache write failed", "error", err)
			}
		}
	}

	return summary, nil
}

func (s *progressionService) buildSummary(memberID uuid.UUID) (*dto.ProgressionSummary, error) {
	mx, err := s.ledger.MemberXp(nil, memberID)
	if err != nil {
		return nil, err
	}

	status, err := s.ranks.StatusFor(mx.TotalXP)
	if err != nil {
		return nil, err
	}

	rows, err := s.enrollments.ListEnrollmentsByMember(nil, memberID)
	if err != nil {
		return nil, err
	}
	summaries := make([]challengeDto.EnrollmentSummary, 0, len(rows))
	for i := range rows {
		summaries = append(summaries, challengeDto.NewEnrollmentSummary(&rows[i], &rows[i].Challenge))
	}

	earned, err := s.badges.ListMemberBadges(nil, memberID)
	if err != nil {
		return nil, err
	}
	badges := make([]dto.EarnedBadge, 0, len(earned))
	for _, mb := range earned {
		badges = append(badges, dto.EarnedBadge{
			BadgeSummary: challengeDto.NewBadgeSummaries([]entity.Badge{mb.Badge})[0],
			UnlockedAt:   mb.UnlockedAt.Format(time.RFC3339),
		})
	}

	return &dto.ProgressionSummary{
		MemberID:    memberID,
		TotalXP:     mx.TotalXP,
		Rank:        rankStatusResponse(status),
		Enrollments: summaries,
		Badges:      badges,
	}, nil
}

func rankStatusResponse(status rankService.RankStatus) dto.RankStatusResponse {
	resp := dto.RankStatusResponse{
		TargetPoints: status.TargetPoints,
		Progress:     status.Progress,
		NextName:     "Max Rank",
	}
	if status.Current != nil {
		resp.Name = status.Current.Name
	}
	if status.Next != nil {
		resp.NextName = status.Next.Name
	}
	return resp
}

func (s *progressionService) Leaderboard(ctx context.Context, limit int) ([]dto.LeaderboardEntry, error) {
	cacheKey := fmt.Sprintf("progression:leaderboard:%d", limit)

	if s.redisClient != nil {
		cached, err := s.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var entries []dto.LeaderboardEntry
			if json.Unmarshal([]byte(cached), &entries) == nil {
				return entries, nil
			}
		} else if err != redis.Nil {
			logger.L().Warnw("leaderboard cache read failed", "error", err)
		}
	}

	top, err := s.ledger.TopMembers(limit)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(top))
	for i, mx := range top {
		entry := dto.LeaderboardEntry{
			Position: i + 1,
			MemberID: mx.MemberID,
			TotalXP:  mx.TotalXP,
		}
		if mx.CurrentRank != nil {
			entry.RankName = mx.CurrentRank.Name
		} else if status, err := s.ranks.StatusFor(mx.TotalXP); err == nil && status.Current != nil {
			entry.RankName = status.Current.Name
		}
		entries = append(entries, entry)
	}

	if s.redisClient != nil {
		if payload, err := json.Marshal(entries); err == nil {
			if err := s.redisClient.SetEx(ctx, cacheKey, payload, s.leaderboardTTL).Err(); err != nil {
				logger.L().Warnw("leaderboard cache write failed", "error", err)
			}
		}
	}

	return entries, nil
}

// Grant applies non-challenge XP (lesson, mission, initial setup)
// through the ledger with the same synchronous rank and badge tail as
// a day log, in one transaction.
func (s *progressionService) Grant(ctx context.Context, req dto.GrantRequest) (*dto.GrantResponse, error) {
	memberID, err := uuid.Parse(req.MemberID)
	if err != nil {
		return nil, apperror.ErrBadRequest
	}

	var resp dto.GrantResponse

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.EnsureWritable(tx, memberID); err != nil {
			return err
		}

		total, err := s.ledger.Append(tx, memberID, req.Amount, req.SourceType, req.SourceID)
		if err != nil {
			return err
		}

		stats, err := s.challenges.AssembleStats(tx, memberID, total)
		if err != nil {
			return err
		}
		unlocked, err := s.badges.Evaluate(tx, memberID, stats)
		if err != nil {
			return err
		}
		if len(unlocked) > 0 {
			total, err = s.ledger.TotalFor(tx, memberID)
			if err != nil {
				return err
			}
		}

		rank, err := s.ranks.Assign(tx, memberID, total)
		if err != nil {
			return err
		}

		resp = dto.GrantResponse{
			TotalXP:             total,
			RankName:            rank.Name,
			NewlyUnlockedBadges: challengeDto.NewBadgeSummaries(unlocked),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateSummary(ctx, memberID)
	logger.L().Infow("xp granted", "member_id", memberID, "amount", req.Amount, "source_type", req.SourceType)
	return &resp, nil
}

func (s *progressionService) InvalidateSummary(ctx context.Context, memberID uuid.UUID) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, summaryKey(memberID)).Err(); err != nil {
		logger.L().Warnw("summary cache invalidation failed", "member_id", memberID, "error", err)
	}
}
