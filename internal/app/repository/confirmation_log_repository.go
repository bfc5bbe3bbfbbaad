package repository

import (
	"github.com/mjlee/confirmail-backend/internal/app/model"
	"github.com/mjlee/confirmail-backend/pkg/logger"
	"gorm.io/gorm"
)

type ConfirmationLogRepository interface {
	Append(entry *model.ConfirmationLog) error
	ListByRequestID(requestID uint, limit int) ([]model.ConfirmationLog, error)
	ListByEmail(email string, limit int) ([]model.ConfirmationLog, error)
	CountByAction() (map[model.LogAction]int64, error)
}

type confirmationLogRepository struct {
	db *gorm.DB
}

func NewConfirmationLogRepository(db *gorm.DB) ConfirmationLogRepository {
	return &confirmationLogRepository{db: db}
}

// Append inserts one audit row. Entries are never updated or deleted.
func (r *confirmationLogRepository) Append(entry *model.ConfirmationLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		logger.Error("Failed to append confirmation log", err, map[string]interface{}{
			"action": entry.Action,
		})
		return err
	}
	return nil
}

func (r *confirmationLogRepository) ListByRequestID(requestID uint, limit int) ([]model.ConfirmationLog, error) {
	var entries []model.ConfirmationLog
	err := r.db.Where("request_id = ?", requestID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *confirmationLogRepository) ListByEmail(email string, limit int) ([]model.ConfirmationLog, error) {
	var entries []model.ConfirmationLog
	err := r.db.
		Joins("JOIN confirmation_requests ON confirmation_requests.id = confirmation_logs.request_id").
		Where("confirmation_requests.email = ?", email).
		Order("confirmation_logs.created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *confirmationLogRepository) CountByAction() (map[model.LogAction]int64, error) {
	type row struct {
		Action model.LogAction
		Count  int64
	}
	var rows []row
	err := r.db.Model(&model.ConfirmationLog{}).
		Select("action, count(*) as count").
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.LogAction]int64, len(rows))
	for _, row := range rows {
		counts[row.Action] = row.Count
	}
	return counts, nil
}
