// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/contactkeeper/accounts/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// AccountRepository defines operations for accounts
type AccountRepository interface {
	Repository[models.Account, models.AccountFilter]
	ByEmail(ctx context.Context, email string) (*models.Account, error)
	ByUUID(ctx context.Context, uuid string) (*models.Account, error)
	ByVerificationToken(ctx context.Context, token string) (*models.Account, error)
	MarkVerified(ctx context.Context, token string) (*models.Account, error)
	UpdateSessionToken(ctx context.Context, accountID uint, token *string) error
	UpdateAvatarURL(ctx context.Context, accountID uint, avatarURL string) error
	UpdateLastLogin(ctx context.Context, accountID uint) error
}

// ContactRepository defines operations for contacts
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ByIDForAccount(ctx context.Context, contactID, accountID uint) (*models.Contact, error)
	ListByAccount(ctx context.Context, accountID uint, favorite *bool, limit, offset int) ([]*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, contactID, accountID uint) (bool, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
