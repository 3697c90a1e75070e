// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/identity/internal/database/users"
)

// ResetCleanupSchedule runs hourly at :00.
const ResetCleanupSchedule = "0 * * * *"

// ResetCleanupScheduler periodically clears expired password reset tokens so
// stale tokens do not linger in the store.
type ResetCleanupScheduler struct {
	repo *users.Repository

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

// NewResetCleanupScheduler creates a new scheduler instance.
func NewResetCleanupScheduler(repo *users.Repository) *ResetCleanupScheduler {
	return &ResetCleanupScheduler{
		repo: repo,
		cron: cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *ResetCleanupScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if _, err := s.cron.AddFunc(ResetCleanupSchedule, s.runCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Reset token cleanup scheduler started (schedule: %q)", ResetCleanupSchedule)
	return nil
}

// Stop halts the scheduler, waiting for a running job to finish.
func (s *ResetCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	log.Printf("Reset token cleanup scheduler stopped")
}

func (s *ResetCleanupScheduler) runCleanup() {
	cleared, err := s.repo.ClearExpiredResetTokens(time.Now())
	if err != nil {
		log.Printf("Reset token cleanup failed: %v", err)
		return
	}
	if cleared > 0 {
		log.Printf("Cleared %d expired password reset tokens", cleared)
	}
}
