package service

import (
	"context"
	"time"

	"github.com/sifan077/DocLink/internal/app/repository"
	"go.uber.org/zap"
)

const tokenSweepInterval = 10 * time.Minute

// TokenSweeper periodically deletes expired verification tokens. Expiry is
// always checked at read time; sweeping only keeps the table small.
type TokenSweeper struct {
	logger   *zap.Logger
	repo     repository.VerificationTokenRepository
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
	done     chan struct{}
}

// NewTokenSweeper creates a sweeper running every ten minutes.
func NewTokenSweeper(logger *zap.Logger, repo repository.VerificationTokenRepository) *TokenSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenSweeper{
		logger:   logger,
		repo:     repo,
		interval: tokenSweepInterval,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *TokenSweeper) Start() {
	go s.run()
}

// Stop stops the sweep and waits for a running pass to finish.
func (s *TokenSweeper) Stop() {
	close(s.stopChan)
	<-s.done
}

func (s *TokenSweeper) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(context.Background())
		case <-s.stopChan:
			s.logger.Info("token sweeper stopped")
			return
		}
	}
}

func (s *TokenSweeper) sweep(ctx context.Context) int64 {
	now := s.now()
	affected, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		s.logger.Error("failed to delete expired verification tokens", zap.Error(err))
		return 0
	}

	if affected > 0 {
		s.logger.Info("deleted expired verification tokens",
			zap.Int64("count", affected),
			zap.Time("expired_before", now),
		)
	}
	return affected
}
