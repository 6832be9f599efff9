package leaderboard

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaps-platform/pkg/config"
	"leaps-platform/pkg/rediskey"
	"leaps-platform/services/ledger"
)

var Module = fx.Module("leaderboard.service",
	fx.Provide(NewService),
)

// Service serves the point-total rollup feeding the participant site.
// Read-only over the ledger; totals are cached briefly in redis.
type Service struct {
	db    *gorm.DB
	redis *redis.Client
	cfg   *config.Config
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Redis  *redis.Client `optional:"true"`
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		redis: p.Redis,
		cfg:   p.Config,
	}
}

func (s *Service) Top(ctx context.Context) ([]ledger.UserTotal, error) {
	size := s.cfg.Leaderboard.Size
	key := rediskey.BuildLeaderboardKey(size)

	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var cached []ledger.UserTotal
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	totals, err := ledger.TopTotals(ctx, s.db, size)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		raw, _ := json.Marshal(totals)
		if err := s.redis.Set(ctx, key, raw, s.cfg.Leaderboard.CacheTTL).Err(); err != nil {
			zap.L().Warn("failed to cache leaderboard", zap.Error(err))
		}
	}

	return totals, nil
}

// UserPoints returns one user's current total. Totals may lag a mutation by
// at most the cache TTL.
func (s *Service) UserPoints(ctx context.Context, userID string) (int64, error) {
	key := rediskey.BuildUserPointsKey(userID)

	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, key).Result(); err == nil {
			if points, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
				return points, nil
			}
		}
	}

	points, err := ledger.SumForUser(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, points, s.cfg.Leaderboard.CacheTTL).Err(); err != nil {
			zap.L().Warn("failed to cache user points", zap.Error(err))
		}
	}

	return points, nil
}

// Refresh recomputes the top totals and rewrites the cache unconditionally,
// so scheduled refreshes keep the leaderboard warm between reads.
func (s *Service) Refresh(ctx context.Context) error {
	totals, err := ledger.TopTotals(ctx, s.db, s.cfg.Leaderboard.Size)
	if err != nil {
		return err
	}
	if s.redis == nil {
		return nil
	}

	raw, err := json.Marshal(totals)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, rediskey.BuildLeaderboardKey(s.cfg.Leaderboard.Size), raw, s.cfg.Leaderboard.CacheTTL).Err()
}
