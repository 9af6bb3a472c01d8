// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/contactkeeper/accounts/models"
	"github.com/contactkeeper/accounts/utils"
	"gorm.io/gorm"
)

// ContactRepositoryImpl implements ContactRepository interface
type ContactRepositoryImpl struct {
	*BaseRepository[models.Contact, models.ContactFilter]
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &ContactRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Contact, models.ContactFilter](db),
	}
}

func applyContactFilter(db *gorm.DB, filter models.ContactFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.AccountID != nil {
		db = db.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Favorite != nil {
		db = db.Where("favorite = ?", *filter.Favorite)
	}
	if filter.Limit != nil {
		db = db.Limit(*filter.Limit)
	}
	if filter.Offset != nil {
		db = db.Offset(*filter.Offset)
	}
	return db
}

// ByFilter retrieves contacts based on filter criteria
func (r *ContactRepositoryImpl) ByFilter(ctx context.Context, filter models.ContactFilter) ([]*models.Contact, error) {
	db := r.getDB(ctx)

	var contacts []*models.Contact
	err := applyContactFilter(db, filter).Order("created_at DESC").Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find contacts by filter: %w", err)
	}

	return contacts, nil
}

// Count returns the number of contacts matching the filter
func (r *ContactRepositoryImpl) Count(ctx context.Context, filter models.ContactFilter) (int64, error) {
	db := r.getDB(ctx)

	filter.Limit = nil
	filter.Offset = nil

	var count int64
	err := applyContactFilter(db.Model(&models.Contact{}), filter).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}

	return count, nil
}

// Exists checks if any contact matching the filter exists
func (r *ContactRepositoryImpl) Exists(ctx context.Context, filter models.ContactFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// ByIDForAccount retrieves a contact by ID scoped to its owner account
func (r *ContactRepositoryImpl) ByIDForAccount(ctx context.Context, contactID, accountID uint) (*models.Contact, error) {
	db := r.getDB(ctx)

	var contact models.Contact
	err := db.Where("id = ? AND account_id = ?", contactID, accountID).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find contact by ID: %w", err)
	}

	return &contact, nil
}

// ListByAccount retrieves contacts owned by an account with optional favorite filter and pagination
func (r *ContactRepositoryImpl) ListByAccount(ctx context.Context, accountID uint, favorite *bool, limit, offset int) ([]*models.Contact, error) {
	filter := models.ContactFilter{
		AccountID: &accountID,
		Favorite:  favorite,
	}
	if limit > 0 {
		filter.Limit = &limit
	}
	if offset > 0 {
		filter.Offset = &offset
	}

	contacts, err := r.ByFilter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts by account: %w", err)
	}

	return contacts, nil
}

// Update persists changes to an existing contact
func (r *ContactRepositoryImpl) Update(ctx context.Context, contact *models.Contact) error {
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

	contact.UpdatedAt = utils.UTCNow()
	err = db.Save(contact).Error
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	return nil
}

// Delete removes a contact scoped to its owner account. Returns false when
// nothing matched.
func (r *ContactRepositoryImpl) Delete(ctx context.Context, contactID, accountID uint) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
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

	result := db.Where("id = ? AND account_id = ?", contactID, accountID).Delete(&models.Contact{})
	if result.Error != nil {
		err = result.Error
		return false, fmt.Errorf("failed to delete contact: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}
