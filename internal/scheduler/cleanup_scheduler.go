package scheduler

import (
	"time"

	"github.com/mjlee/confirmail-backend/internal/app/repository"
	"github.com/mjlee/confirmail-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// CleanupScheduler sweeps pending confirmation requests whose expiry has
// passed without a verification attempt. Verification also expires lazily
// on lookup; the sweep keeps rows honest for the admin metrics surface.
type CleanupScheduler struct {
	cron        *cron.Cron
	confirmRepo repository.ConfirmationRepository
}

func NewCleanupScheduler(confirmRepo repository.ConfirmationRepository) *CleanupScheduler {
	return &CleanupScheduler{
		cron:        cron.New(),
		confirmRepo: confirmRepo,
	}
}

func (s *CleanupScheduler) Start() error {
	// Hourly, on the hour
	_, err := s.cron.AddFunc("0 * * * *", func() {
		logger.Info("Starting expired confirmation sweep", nil)

		count, err := s.confirmRepo.ExpireOverdue(time.Now())
		if err != nil {
			logger.Error("Expired confirmation sweep failed", err)
			return
		}

		logger.Info("Expired confirmation sweep completed", map[string]interface{}{
			"expired_count": count,
		})
	})
	if err != nil {
		logger.Error("Failed to schedule confirmation sweep", err)
		return err
	}

	s.cron.Start()
	logger.Info("Cleanup scheduler started (hourly)", nil)
	return nil
}

func (s *CleanupScheduler) Stop() {
	logger.Info("Stopping cleanup scheduler...", nil)
	s.cron.Stop()
	logger.Info("Cleanup scheduler stopped", nil)
}
