// Package models contains domain entities and business models for the accounts service
package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tier constants
const (
	SubscriptionStarter  = "starter"
	SubscriptionPro      = "pro"
	SubscriptionBusiness = "business"
)

type Account struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_accounts_uuid" json:"uuid"`

	Email        string `gorm:"size:255;not null;uniqueIndex:idx_accounts_email" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	Subscription string `gorm:"type:subscription_enum;not null;default:starter" json:"subscription"`
	AvatarURL    string `gorm:"size:512;not null" json:"avatar_url"`

	// Verification state. The token is cleared atomically when verification
	// succeeds, which makes it single use.
	IsVerified        *bool   `gorm:"default:false;index:idx_accounts_is_verified" json:"is_verified"`
	VerificationToken *string `gorm:"size:64;uniqueIndex:uk_accounts_verification_token" json:"-"`

	// The single active session token. NULL means logged out.
	SessionToken *string `gorm:"type:text" json:"-"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_accounts_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	LastLoginAt *time.Time `gorm:"index:idx_accounts_last_login_at" json:"last_login_at,omitempty"`

	// Relations
	Contacts  []Contact  `gorm:"foreignKey:AccountID" json:"-"`
	AuditLogs []AuditLog `gorm:"foreignKey:AccountID" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID                *uint
	UUID              *uuid.UUID
	Email             *string
	Subscription      *string
	VerificationToken *string
	IsVerified        *bool
	CreatedAfter      *time.Time
	CreatedBefore     *time.Time
}

func (a *Account) HasActiveSession() bool {
	return a.SessionToken != nil && *a.SessionToken != ""
}

func (a *Account) ValidSubscription() bool {
	switch a.Subscription {
	case SubscriptionStarter, SubscriptionPro, SubscriptionBusiness:
		return true
	}
	return false
}
