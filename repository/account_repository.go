// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/contactkeeper/accounts/models"
	"github.com/contactkeeper/accounts/utils"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateEmail indicates a unique constraint violation on the email column.
var ErrDuplicateEmail = errors.New("email already registered")

// AccountRepositoryImpl implements AccountRepository interface
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

func applyAccountFilter(db *gorm.DB, filter models.AccountFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Subscription != nil {
		db = db.Where("subscription = ?", *filter.Subscription)
	}
	if filter.VerificationToken != nil {
		db = db.Where("verification_token = ?", *filter.VerificationToken)
	}
	if filter.IsVerified != nil {
		db = db.Where("is_verified = ?", *filter.IsVerified)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}

// ByFilter retrieves accounts based on filter criteria
func (r *AccountRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error) {
	db := r.getDB(ctx)

	var accounts []*models.Account
	err := applyAccountFilter(db, filter).Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts by filter: %w", err)
	}

	return accounts, nil
}

// Count returns the number of accounts matching the filter
func (r *AccountRepositoryImpl) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := applyAccountFilter(db.Model(&models.Account{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}

// Exists checks if any account matching the filter exists
func (r *AccountRepositoryImpl) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// Save inserts a new account, mapping unique email violations to ErrDuplicateEmail
func (r *AccountRepositoryImpl) Save(ctx context.Context, account *models.Account) error {
	err := r.BaseRepository.Save(ctx, account)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	return nil
}

// ByEmail retrieves an account by email address
func (r *AccountRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	filter := models.AccountFilter{Email: &email}
	accounts, err := r.ByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// ByUUID retrieves an account by its public UUID
func (r *AccountRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Account, error) {
	db := r.getDB(ctx)

	var account models.Account
	err := db.Where("uuid = ?", uuid).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by UUID: %w", err)
	}

	return &account, nil
}

// ByVerificationToken retrieves an account by its verification token
func (r *AccountRepositoryImpl) ByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	filter := models.AccountFilter{VerificationToken: &token}
	accounts, err := r.ByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by verification token: %w", err)
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// MarkVerified flips the account matching the token to verified and clears the
// token in a single update. Returns nil when no account holds the token, which
// covers both unknown and already consumed tokens.
func (r *AccountRepositoryImpl) MarkVerified(ctx context.Context, token string) (*models.Account, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return nil, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	var updated []models.Account
	err = db.Model(&updated).
		Clauses(clause.Returning{}).
		Where("verification_token = ?", token).
		Updates(map[string]any{
			"is_verified":        true,
			"verification_token": nil,
			"verified_at":        now,
			"updated_at":         now,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to mark account verified: %w", err)
	}

	if len(updated) == 0 {
		return nil, nil
	}

	return &updated[0], nil
}

// UpdateSessionToken stores the single active session token; nil logs out
func (r *AccountRepositoryImpl) UpdateSessionToken(ctx context.Context, accountID uint, token *string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"session_token": token,
			"updated_at":    utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update session token: %w", err)
	}

	return nil
}

// UpdateAvatarURL stores the new avatar URL for an account
func (r *AccountRepositoryImpl) UpdateAvatarURL(ctx context.Context, accountID uint, avatarURL string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"avatar_url": avatarURL,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update avatar URL: %w", err)
	}

	return nil
}

// UpdateLastLogin records a successful login timestamp
func (r *AccountRepositoryImpl) UpdateLastLogin(ctx context.Context, accountID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("last_login_at", utils.UTCNow()).Error
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err wraps a Postgres unique constraint
// error. The gorm connection runs with TranslateError, so driver errors arrive
// as ErrDuplicatedKey; the pgconn check covers untranslated paths.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	return false
}
