package worker

import (
	"context"
	"errors"
	"time"

	"codegrade/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const InterruptedMessage = "grading interrupted"

// releaseLock deletes the lock only while we still own it.
var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

type SweeperConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
	LockKey    string
	LockTTL    time.Duration
}

// PendingSweeper finalizes submissions left pending by a crashed or
// interrupted grading. One replica sweeps at a time.
type PendingSweeper struct {
	rdb            *redis.Client
	submissionRepo repository.SubmissionRepository
	cfg            SweeperConfig
	log            *zap.Logger
	now            func() time.Time
}

func NewPendingSweeper(rdb *redis.Client, subRepo repository.SubmissionRepository, cfg SweeperConfig, log *zap.Logger) *PendingSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	if cfg.LockKey == "" {
		cfg.LockKey = "pending_sweeper_lock"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PendingSweeper{
		rdb:            rdb,
		submissionRepo: subRepo,
		cfg:            cfg,
		log:            log.Named("pending_sweeper"),
		now:            time.Now,
	}
}

// Start sweeps every Interval until ctx is cancelled.
func (s *PendingSweeper) Start(ctx context.Context) {
	s.log.Info("pending sweeper started",
		zap.Duration("interval", s.cfg.Interval), zap.Duration("stale_after", s.cfg.StaleAfter))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("pending sweeper stopping")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce marks stale pending submissions as internal errors. It returns
// how many were marked, or 0 when another replica holds the lock.
func (s *PendingSweeper) SweepOnce(ctx context.Context) (int64, error) {
	lockValue := uuid.NewString()
	ok, err := s.rdb.SetNX(ctx, s.cfg.LockKey, lockValue, s.cfg.LockTTL).Result()
	if err != nil {
		return 0, err
	}
	if !ok {
		s.log.Debug("sweep lock held elsewhere")
		return 0, nil
	}
	defer func() {
		// release even when ctx is already cancelled
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseLock.Run(relCtx, s.rdb, []string{s.cfg.LockKey}, lockValue).Err(); err != nil {
			s.log.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	n, err := s.submissionRepo.MarkStalePending(ctx, s.now().Add(-s.cfg.StaleAfter), InterruptedMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Warn("marked stale pending submissions", zap.Int64("count", n))
	}
	return n, nil
}
