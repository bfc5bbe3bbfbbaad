package model

import (
	"time"
)

type ConfirmationStatus string

const (
	StatusPending   ConfirmationStatus = "pending"
	StatusConfirmed ConfirmationStatus = "confirmed"
	StatusExpired   ConfirmationStatus = "expired"
	StatusFailed    ConfirmationStatus = "failed"
	StatusCancelled ConfirmationStatus = "cancelled"
)

type ConfirmationPurpose string

const (
	PurposeSignup        ConfirmationPurpose = "signup"
	PurposePasswordReset ConfirmationPurpose = "password_reset"
)

// ConfirmationRequest is one logical confirmation flow for an email.
// Reissuing inside the rate-limit window mutates this row in place (new
// hash, new expiry); only the hash of the token is ever stored.
type ConfirmationRequest struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	UserID      *uint               `gorm:"index" json:"userId,omitempty"`
	Email       string              `gorm:"size:255;not null;index" json:"email"`
	Purpose     ConfirmationPurpose `gorm:"type:varchar(32);not null;default:'signup'" json:"purpose"`
	TokenHash   string              `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Status      ConfirmationStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ExpiresAt   time.Time           `gorm:"not null" json:"expiresAt"`
	ConfirmedAt *time.Time          `json:"confirmedAt,omitempty"`
	Attempts    int                 `gorm:"not null;default:1" json:"attempts"`
	LastSentAt  time.Time           `gorm:"not null;index" json:"lastSentAt"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func (ConfirmationRequest) TableName() string {
	return "confirmation_requests"
}

// Expired reports whether the token lifetime has passed at the given instant.
func (r *ConfirmationRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
