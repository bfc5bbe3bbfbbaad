package model

import (
	"time"
)

// User is the account record a confirmation may be tied to. Confirming a
// token with a UserID flips EmailConfirmed and clears ConfirmationRequired.
type User struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Email                string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	EmailConfirmed       bool      `gorm:"not null;default:false" json:"emailConfirmed"`
	ConfirmationRequired bool      `gorm:"not null;default:true" json:"confirmationRequired"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
