package service

import (
	"errors"
	"time"

	"github.com/mjlee/confirmail-backend/internal/app/model"
	"github.com/mjlee/confirmail-backend/internal/app/repository"
	"github.com/mjlee/confirmail-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrRequestNotFound  = errors.New("confirmation request not found")
	ErrCancelNotPending = errors.New("only pending requests can be cancelled")
)

// Metrics summarizes the confirmation pipeline for the operations surface.
type Metrics struct {
	RequestsByStatus map[model.ConfirmationStatus]int64 `json:"requestsByStatus"`
	EventsByAction   map[model.LogAction]int64          `json:"eventsByAction"`
}

type AdminService interface {
	GetRequest(id uint) (*model.ConfirmationRequest, error)
	GetRequestLogs(id uint, limit int) ([]model.ConfirmationLog, error)
	GetLogsByEmail(email string, limit int) ([]model.ConfirmationLog, error)
	CancelRequest(id uint, cancelledBy, ip, userAgent string) error
	GetMetrics() (*Metrics, error)
}

type adminService struct {
	confirmRepo repository.ConfirmationRepository
	logRepo     repository.ConfirmationLogRepository
}

func NewAdminService(
	confirmRepo repository.ConfirmationRepository,
	logRepo repository.ConfirmationLogRepository,
) AdminService {
	return &adminService{
		confirmRepo: confirmRepo,
		logRepo:     logRepo,
	}
}

func (s *adminService) GetRequest(id uint) (*model.ConfirmationRequest, error) {
	req, err := s.confirmRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *adminService) GetRequestLogs(id uint, limit int) ([]model.ConfirmationLog, error) {
	if _, err := s.GetRequest(id); err != nil {
		return nil, err
	}
	return s.logRepo.ListByRequestID(id, limit)
}

func (s *adminService) GetLogsByEmail(email string, limit int) ([]model.ConfirmationLog, error) {
	return s.logRepo.ListByEmail(email, limit)
}

// CancelRequest performs the administrative pending-to-cancelled
// transition. Cancellation is terminal; the emailed token becomes
// permanently unusable.
func (s *adminService) CancelRequest(id uint, cancelledBy, ip, userAgent string) error {
	started := time.Now()

	req, err := s.GetRequest(id)
	if err != nil {
		return err
	}

	ok, err := s.confirmRepo.Cancel(req.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelNotPending
	}

	entry := &model.ConfirmationLog{
		RequestID:      &req.ID,
		Action:         model.ActionCancelled,
		IPAddress:      ip,
		UserAgent:      userAgent,
		Success:        true,
		ResponseTimeMs: time.Since(started).Milliseconds(),
		Metadata:       model.EncodeMetadata(model.CancelledMeta{CancelledBy: cancelledBy}),
	}
	if err := s.logRepo.Append(entry); err != nil {
		logger.Warn("Failed to append cancellation audit entry", map[string]interface{}{
			"request_id": req.ID,
			"error":      err.Error(),
		})
	}

	logger.Info("Confirmation request cancelled", map[string]interface{}{
		"request_id":   req.ID,
		"cancelled_by": cancelledBy,
	})
	return nil
}

func (s *adminService) GetMetrics() (*Metrics, error) {
	statuses, err := s.confirmRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	actions, err := s.logRepo.CountByAction()
	if err != nil {
		return nil, err
	}
	return &Metrics{
		RequestsByStatus: statuses,
		EventsByAction:   actions,
	}, nil
}
