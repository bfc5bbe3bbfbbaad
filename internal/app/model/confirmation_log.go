package model

import (
	"encoding/json"
	"time"
)

type LogAction string

const (
	ActionSent      LogAction = "sent"
	ActionClicked   LogAction = "clicked"
	ActionConfirmed LogAction = "confirmed"
	ActionFailed    LogAction = "failed"
	ActionExpired   LogAction = "expired"
	ActionResent    LogAction = "resent"
	ActionCancelled LogAction = "cancelled"
)

// ConfirmationLog is an append-only audit entry, one row per event.
// RequestID is nil for attempts that matched no request (unknown token).
type ConfirmationLog struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	RequestID      *uint      `gorm:"index" json:"requestId,omitempty"`
	Action         LogAction  `gorm:"type:varchar(20);not null;index" json:"action"`
	IPAddress      string     `gorm:"size:64" json:"ipAddress"`
	UserAgent      string     `gorm:"size:512" json:"userAgent"`
	Success        bool       `gorm:"not null" json:"success"`
	ErrorMessage   string     `gorm:"size:1024" json:"errorMessage,omitempty"`
	ResponseTimeMs int64      `json:"responseTimeMs"`
	Metadata       string     `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (ConfirmationLog) TableName() string {
	return "confirmation_logs"
}

// LogMetadata is the closed set of per-action payloads. Each variant
// carries only the fields relevant to its action; building metadata any
// other way does not compile.
type LogMetadata interface {
	Action() LogAction
}

// SentMeta accompanies the first issuance for an email.
type SentMeta struct {
	Purpose  ConfirmationPurpose `json:"purpose"`
	Attempts int                 `json:"attempts"`
}

func (SentMeta) Action() LogAction { return ActionSent }

// ResentMeta accompanies an in-window reissue.
type ResentMeta struct {
	Purpose  ConfirmationPurpose `json:"purpose"`
	Attempts int                 `json:"attempts"`
}

func (ResentMeta) Action() LogAction { return ActionResent }

// ClickedMeta accompanies a verification attempt on a valid pending token.
type ClickedMeta struct {
	Purpose ConfirmationPurpose `json:"purpose"`
}

func (ClickedMeta) Action() LogAction { return ActionClicked }

// ConfirmedMeta accompanies a successful confirmation.
type ConfirmedMeta struct {
	UserUpdated bool `json:"userUpdated"`
}

func (ConfirmedMeta) Action() LogAction { return ActionConfirmed }

// FailedMeta accompanies any rejected or rolled-back attempt.
type FailedMeta struct {
	Reason string `json:"reason"`
}

func (FailedMeta) Action() LogAction { return ActionFailed }

// ExpiredMeta accompanies the pending-to-expired transition.
type ExpiredMeta struct {
	ExpiredAt time.Time `json:"expiredAt"`
}

func (ExpiredMeta) Action() LogAction { return ActionExpired }

// CancelledMeta accompanies an administrative cancellation.
type CancelledMeta struct {
	CancelledBy string `json:"cancelledBy"`
}

func (CancelledMeta) Action() LogAction { return ActionCancelled }

// EncodeMetadata serializes a metadata variant for storage. A nil variant
// yields the empty string.
func EncodeMetadata(meta LogMetadata) string {
	if meta == nil {
		return ""
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return ""
	}
	return string(data)
}
