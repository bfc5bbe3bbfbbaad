package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/mjlee/confirmail-backend/config"
	"github.com/mjlee/confirmail-backend/internal/app/model"
	"github.com/mjlee/confirmail-backend/internal/app/repository"
	"github.com/mjlee/confirmail-backend/pkg/logger"
	"github.com/mjlee/confirmail-backend/pkg/mailer"
	"github.com/mjlee/confirmail-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrTokenRequired      = errors.New("token is required")
	ErrTokenNotFound      = errors.New("confirmation token not found")
	ErrAlreadyConfirmed   = errors.New("token has already been confirmed")
	ErrTokenExpired       = errors.New("confirmation token has expired")
	ErrTokenInvalidState  = errors.New("token is not in a confirmable state")
	ErrConfirmationFailed = errors.New("confirmation could not be completed")
	ErrIssueConflict      = errors.New("concurrent issuance detected")
)

// RateLimitError reports an issuance cap breach together with the time
// remaining until the window resets.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

// IssueParams describes one issuance call.
type IssueParams struct {
	Email      string
	UserID     *uint
	Purpose    model.ConfirmationPurpose
	IsResend   bool
	RedirectTo string
	IPAddress  string
	UserAgent  string
}

// VerifyParams describes one verification call.
type VerifyParams struct {
	Token     string
	IPAddress string
	UserAgent string
}

type ConfirmationService interface {
	Issue(params IssueParams) error
	// Verify validates a presented plaintext token. On state errors
	// (ErrAlreadyConfirmed, ErrTokenExpired, ErrTokenInvalidState) the
	// matched request is returned alongside the error so callers can
	// surface confirmedAt, expiresAt and email.
	Verify(params VerifyParams) (*model.ConfirmationRequest, error)
}

type confirmationService struct {
	confirmRepo repository.ConfirmationRepository
	logRepo     repository.ConfirmationLogRepository
	userRepo    repository.UserRepository
	mail        mailer.Mailer
	cfg         config.ConfirmationConfig
}

func NewConfirmationService(
	confirmRepo repository.ConfirmationRepository,
	logRepo repository.ConfirmationLogRepository,
	userRepo repository.UserRepository,
	mail mailer.Mailer,
	cfg config.ConfirmationConfig,
) ConfirmationService {
	return &confirmationService{
		confirmRepo: confirmRepo,
		logRepo:     logRepo,
		userRepo:    userRepo,
		mail:        mail,
		cfg:         cfg,
	}
}

func (s *confirmationService) Issue(params IssueParams) error {
	started := time.Now()

	if params.Email == "" {
		return ErrEmailRequired
	}
	if params.Purpose == "" {
		params.Purpose = model.PurposeSignup
	}

	logger.Info("Processing confirmation issuance", map[string]interface{}{
		"email":   params.Email,
		"purpose": params.Purpose,
		"resend":  params.IsResend,
	})

	// Password reset must not reveal whether the email maps to an
	// account. The lookup happens here, server-side only; unknown emails
	// still get a generic success from the controller.
	if params.Purpose == model.PurposePasswordReset && params.UserID == nil {
		user, err := s.userRepo.FindByEmail(params.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn("Password reset requested for unknown email", map[string]interface{}{
					"email": params.Email,
				})
				return nil
			}
			return err
		}
		params.UserID = &user.ID
	}

	now := time.Now()
	expiry := now.Add(s.expiryFor(params.Purpose))

	token, err := util.GenerateToken()
	if err != nil {
		logger.Error("Failed to generate confirmation token", err, nil)
		return err
	}
	tokenHash := util.HashToken(token)

	latest, err := s.confirmRepo.FindLatestByEmail(params.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var req *model.ConfirmationRequest
	action := model.ActionSent
	var meta model.LogMetadata

	if latest != nil && now.Sub(latest.LastSentAt) < s.cfg.RateLimitWindow {
		// Inside the window: the existing row is reused. Enforce the cap
		// first, then overwrite hash and expiry in place, keyed on the
		// observed attempt count so a concurrent reissue cannot be lost.
		if latest.Attempts >= s.cfg.MaxAttempts {
			retryAfter := s.cfg.RateLimitWindow - now.Sub(latest.LastSentAt)
			logger.Warn("Issuance rate limit exceeded", map[string]interface{}{
				"email":       params.Email,
				"attempts":    latest.Attempts,
				"retry_after": retryAfter.String(),
			})
			return &RateLimitError{RetryAfter: retryAfter}
		}

		ok, err := s.confirmRepo.Reissue(latest.ID, latest.Attempts, tokenHash, expiry, now)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("Concurrent reissue detected", map[string]interface{}{
				"email":      params.Email,
				"request_id": latest.ID,
			})
			return ErrIssueConflict
		}

		req = latest
		req.Attempts = latest.Attempts + 1
		action = model.ActionResent
		meta = model.ResentMeta{Purpose: params.Purpose, Attempts: req.Attempts}
	} else {
		req = &model.ConfirmationRequest{
			UserID:     params.UserID,
			Email:      params.Email,
			Purpose:    params.Purpose,
			TokenHash:  tokenHash,
			Status:     model.StatusPending,
			ExpiresAt:  expiry,
			Attempts:   1,
			LastSentAt: now,
		}
		if err := s.confirmRepo.Create(req); err != nil {
			return err
		}
		meta = model.SentMeta{Purpose: params.Purpose, Attempts: 1}
	}

	// Row is persisted before the send: a provider failure leaves it
	// pending and the next issuance call retries with a fresh token.
	if err := s.sendEmail(params, token); err != nil {
		logger.Error("Failed to send confirmation email", err, map[string]interface{}{
			"email":      params.Email,
			"request_id": req.ID,
		})
		return err
	}

	s.audit(&req.ID, action, true, "", meta, params.IPAddress, params.UserAgent, started)

	logger.Info("Confirmation token issued", map[string]interface{}{
		"email":      params.Email,
		"request_id": req.ID,
		"attempts":   req.Attempts,
		"expires_at": expiry,
	})
	return nil
}

func (s *confirmationService) Verify(params VerifyParams) (*model.ConfirmationRequest, error) {
	started := time.Now()

	if params.Token == "" {
		return nil, ErrTokenRequired
	}

	tokenHash := util.HashToken(params.Token)

	req, err := s.confirmRepo.FindByTokenHash(tokenHash)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Verification attempted with unknown token", nil)
			s.audit(nil, model.ActionFailed, false, "unknown token",
				model.FailedMeta{Reason: "unknown_token"},
				params.IPAddress, params.UserAgent, started)
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	switch {
	case req.Status == model.StatusConfirmed:
		s.audit(&req.ID, model.ActionFailed, false, "already confirmed",
			model.FailedMeta{Reason: "already_confirmed"},
			params.IPAddress, params.UserAgent, started)
		return req, ErrAlreadyConfirmed

	case req.Expired(time.Now()):
		// Expiry takes precedence over every other pending-state check.
		if _, err := s.confirmRepo.MarkExpired(req.ID); err != nil {
			return req, err
		}
		req.Status = model.StatusExpired
		s.audit(&req.ID, model.ActionExpired, false, "token expired",
			model.ExpiredMeta{ExpiredAt: req.ExpiresAt},
			params.IPAddress, params.UserAgent, started)
		return req, ErrTokenExpired

	case req.Status != model.StatusPending:
		s.audit(&req.ID, model.ActionFailed, false, "invalid status",
			model.FailedMeta{Reason: "invalid_status"},
			params.IPAddress, params.UserAgent, started)
		return req, ErrTokenInvalidState
	}

	s.audit(&req.ID, model.ActionClicked, true, "",
		model.ClickedMeta{Purpose: req.Purpose},
		params.IPAddress, params.UserAgent, started)

	confirmedAt := time.Now()
	ok, err := s.confirmRepo.Confirm(req.ID, confirmedAt)
	if err != nil {
		s.audit(&req.ID, model.ActionFailed, false, err.Error(),
			model.FailedMeta{Reason: "transition_error"},
			params.IPAddress, params.UserAgent, started)
		return req, ErrConfirmationFailed
	}
	if !ok {
		// Lost the race: someone else moved the row out of pending.
		fresh, ferr := s.confirmRepo.FindByID(req.ID)
		if ferr == nil && fresh.Status == model.StatusConfirmed {
			s.audit(&req.ID, model.ActionFailed, false, "already confirmed",
				model.FailedMeta{Reason: "already_confirmed"},
				params.IPAddress, params.UserAgent, started)
			return fresh, ErrAlreadyConfirmed
		}
		s.audit(&req.ID, model.ActionFailed, false, "invalid status",
			model.FailedMeta{Reason: "invalid_status"},
			params.IPAddress, params.UserAgent, started)
		return req, ErrTokenInvalidState
	}

	// Best-effort account update: a failure here is logged but does not
	// undo the confirmation.
	userUpdated := false
	if req.UserID != nil {
		if err := s.userRepo.MarkEmailConfirmed(*req.UserID); err != nil {
			logger.Warn("Failed to update account after confirmation", map[string]interface{}{
				"user_id": *req.UserID,
				"error":   err.Error(),
			})
		} else {
			userUpdated = true
		}
	}

	entry := &model.ConfirmationLog{
		RequestID:      &req.ID,
		Action:         model.ActionConfirmed,
		IPAddress:      params.IPAddress,
		UserAgent:      params.UserAgent,
		Success:        true,
		ResponseTimeMs: time.Since(started).Milliseconds(),
		Metadata:       model.EncodeMetadata(model.ConfirmedMeta{UserUpdated: userUpdated}),
	}
	if err := s.logRepo.Append(entry); err != nil {
		// The confirmed audit row is part of the transition contract.
		// Revert to pending so the user can retry with the same link.
		if rbErr := s.confirmRepo.RollbackConfirm(req.ID); rbErr != nil {
			logger.Error("Rollback after failed confirmation bookkeeping failed", rbErr, map[string]interface{}{
				"request_id": req.ID,
			})
		}
		s.audit(&req.ID, model.ActionFailed, false, err.Error(),
			model.FailedMeta{Reason: "bookkeeping_error"},
			params.IPAddress, params.UserAgent, started)
		req.Status = model.StatusPending
		req.ConfirmedAt = nil
		return req, ErrConfirmationFailed
	}

	req.Status = model.StatusConfirmed
	req.ConfirmedAt = &confirmedAt

	logger.Info("Confirmation completed", map[string]interface{}{
		"request_id":   req.ID,
		"email":        req.Email,
		"user_updated": userUpdated,
	})
	return req, nil
}

func (s *confirmationService) expiryFor(purpose model.ConfirmationPurpose) time.Duration {
	if purpose == model.PurposePasswordReset {
		return s.cfg.ResetTokenExpiry
	}
	return s.cfg.SignupTokenExpiry
}

func (s *confirmationService) sendEmail(params IssueParams, token string) error {
	if params.Purpose == model.PurposePasswordReset {
		return s.mail.SendPasswordResetEmail(params.Email, token, params.RedirectTo)
	}
	return s.mail.SendConfirmationEmail(params.Email, token, params.RedirectTo)
}

// audit appends one log row. Outside the confirmed-transition bookkeeping
// an append failure is logged and swallowed; the primary operation is not
// sacrificed to the trail.
func (s *confirmationService) audit(requestID *uint, action model.LogAction, success bool, errMsg string, meta model.LogMetadata, ip, userAgent string, started time.Time) {
	entry := &model.ConfirmationLog{
		RequestID:      requestID,
		Action:         action,
		IPAddress:      ip,
		UserAgent:      userAgent,
		Success:        success,
		ErrorMessage:   errMsg,
		ResponseTimeMs: time.Since(started).Milliseconds(),
		Metadata:       model.EncodeMetadata(meta),
	}
	if err := s.logRepo.Append(entry); err != nil {
		logger.Warn("Failed to append audit entry", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
	}
}
