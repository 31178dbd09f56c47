package model

import (
	"fmt"
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenIdentifier is the opaque ownership key stored on documents and chat
// records. It is stable for a given issuer and user.
func (u *User) TokenIdentifier(issuer string) string {
	return TokenIdentifierFor(issuer, u.ID)
}

func TokenIdentifierFor(issuer string, userID uint) string {
	return fmt.Sprintf("%s|%d", issuer, userID)
}
