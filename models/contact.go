// Package models contains domain entities and business models for the accounts service
package models

import (
	"time"
)

type Contact struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	AccountID uint     `gorm:"not null;index:idx_contacts_account_id" json:"account_id"`
	Account   *Account `gorm:"foreignKey:AccountID;references:ID" json:"-"`

	Name     string `gorm:"size:255;not null" json:"name"`
	Email    string `gorm:"size:255;not null" json:"email"`
	Phone    string `gorm:"size:30;not null" json:"phone"`
	Favorite *bool  `gorm:"default:false;index:idx_contacts_favorite" json:"favorite"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// ContactFilter represents filter criteria for contact queries
type ContactFilter struct {
	ID        *uint
	AccountID *uint
	Email     *string
	Favorite  *bool
	Limit     *int
	Offset    *int
}
