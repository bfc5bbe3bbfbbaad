package repository

import (
	"time"

	"github.com/mjlee/confirmail-backend/internal/app/model"
	"github.com/mjlee/confirmail-backend/pkg/logger"
	"gorm.io/gorm"
)

type ConfirmationRepository interface {
	Create(req *model.ConfirmationRequest) error
	FindByID(id uint) (*model.ConfirmationRequest, error)
	FindLatestByEmail(email string) (*model.ConfirmationRequest, error)
	FindByTokenHash(hash string) (*model.ConfirmationRequest, error)
	Reissue(id uint, observedAttempts int, tokenHash string, expiresAt, sentAt time.Time) (bool, error)
	Confirm(id uint, confirmedAt time.Time) (bool, error)
	RollbackConfirm(id uint) error
	MarkExpired(id uint) (bool, error)
	Cancel(id uint) (bool, error)
	ExpireOverdue(cutoff time.Time) (int64, error)
	CountByStatus() (map[model.ConfirmationStatus]int64, error)
}

type confirmationRepository struct {
	db *gorm.DB
}

func NewConfirmationRepository(db *gorm.DB) ConfirmationRepository {
	return &confirmationRepository{db: db}
}

func (r *confirmationRepository) Create(req *model.ConfirmationRequest) error {
	logger.Debug("Creating confirmation request in database", map[string]interface{}{
		"email":   req.Email,
		"purpose": req.Purpose,
	})

	if err := r.db.Create(req).Error; err != nil {
		logger.Error("Failed to create confirmation request in database", err, map[string]interface{}{
			"email": req.Email,
		})
		return err
	}
	return nil
}

func (r *confirmationRepository) FindByID(id uint) (*model.ConfirmationRequest, error) {
	var req model.ConfirmationRequest
	if err := r.db.First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *confirmationRepository) FindLatestByEmail(email string) (*model.ConfirmationRequest, error) {
	var req model.ConfirmationRequest
	err := r.db.Where("email = ?", email).
		Order("created_at DESC").
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *confirmationRepository) FindByTokenHash(hash string) (*model.ConfirmationRequest, error) {
	var req model.ConfirmationRequest
	if err := r.db.Where("token_hash = ?", hash).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// Reissue overwrites the token hash and expiry of an existing row and
// bumps the attempt counter. The update is keyed on the attempts value
// the caller observed; zero rows affected means a concurrent reissue won
// and the caller must re-read.
func (r *confirmationRepository) Reissue(id uint, observedAttempts int, tokenHash string, expiresAt, sentAt time.Time) (bool, error) {
	result := r.db.Model(&model.ConfirmationRequest{}).
		Where("id = ? AND attempts = ?", id, observedAttempts).
		Updates(map[string]interface{}{
			"token_hash":   tokenHash,
			"expires_at":   expiresAt,
			"status":       model.StatusPending,
			"confirmed_at": nil,
			"attempts":     observedAttempts + 1,
			"last_sent_at": sentAt,
		})
	if result.Error != nil {
		logger.Error("Failed to reissue confirmation request", result.Error, map[string]interface{}{
			"request_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Confirm performs the pending-to-confirmed transition as a conditional
// update. Zero rows affected means the row was not pending anymore
// (another request already confirmed, expired or cancelled it).
func (r *confirmationRepository) Confirm(id uint, confirmedAt time.Time) (bool, error) {
	result := r.db.Model(&model.ConfirmationRequest{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":       model.StatusConfirmed,
			"confirmed_at": confirmedAt,
		})
	if result.Error != nil {
		logger.Error("Failed to confirm request", result.Error, map[string]interface{}{
			"request_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RollbackConfirm reverts a confirmation whose follow-up bookkeeping
// failed, so the user can retry with the same link.
func (r *confirmationRepository) RollbackConfirm(id uint) error {
	result := r.db.Model(&model.ConfirmationRequest{}).
		Where("id = ? AND status = ?", id, model.StatusConfirmed).
		Updates(map[string]interface{}{
			"status":       model.StatusPending,
			"confirmed_at": nil,
		})
	if result.Error != nil {
		logger.Error("Failed to roll back confirmation", result.Error, map[string]interface{}{
			"request_id": id,
		})
	}
	return result.Error
}

func (r *confirmationRepository) MarkExpired(id uint) (bool, error) {
	result := r.db.Model(&model.ConfirmationRequest{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Update("status", model.StatusExpired)
	if result.Error != nil {
		logger.Error("Failed to mark request expired", result.Error, map[string]interface{}{
			"request_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *confirmationRepository) Cancel(id uint) (bool, error) {
	result := r.db.Model(&model.ConfirmationRequest{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Update("status", model.StatusCancelled)
	if result.Error != nil {
		logger.Error("Failed to cancel request", result.Error, map[string]interface{}{
			"request_id": id,
		})
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ExpireOverdue sweeps pending rows whose expiry is already in the past.
func (r *confirmationRepository) ExpireOverdue(cutoff time.Time) (int64, error) {
	result := r.db.Model(&model.ConfirmationRequest{}).
		Where("status = ? AND expires_at < ?", model.StatusPending, cutoff).
		Update("status", model.StatusExpired)
	if result.Error != nil {
		logger.Error("Failed to expire overdue requests", result.Error, nil)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *confirmationRepository) CountByStatus() (map[model.ConfirmationStatus]int64, error) {
	type row struct {
		Status model.ConfirmationStatus
		Count  int64
	}
	var rows []row
	err := r.db.Model(&model.ConfirmationRequest{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.ConfirmationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
