// Package businessflow contains the core business logic and use cases for account workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/contactkeeper/accounts/app/dto"
	"github.com/contactkeeper/accounts/models"
	"github.com/contactkeeper/accounts/repository"
	"github.com/contactkeeper/accounts/utils"
)

// ContactFlow handles the contact management business logic
type ContactFlow interface {
	ListContacts(ctx context.Context, accountID uint, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error)
	GetContact(ctx context.Context, accountID, contactID uint) (*dto.ContactDTO, error)
	CreateContact(ctx context.Context, accountID uint, req *dto.CreateContactRequest, metadata *ClientMetadata) (*dto.ContactDTO, error)
	UpdateContact(ctx context.Context, accountID, contactID uint, req *dto.UpdateContactRequest, metadata *ClientMetadata) (*dto.ContactDTO, error)
	UpdateFavorite(ctx context.Context, accountID, contactID uint, req *dto.UpdateFavoriteRequest, metadata *ClientMetadata) (*dto.ContactDTO, error)
	DeleteContact(ctx context.Context, accountID, contactID uint, metadata *ClientMetadata) error
}

// ContactFlowImpl implements the contact business flow
type ContactFlowImpl struct {
	contactRepo repository.ContactRepository
	auditRepo   repository.AuditLogRepository
}

// NewContactFlow creates a new contact flow instance
func NewContactFlow(contactRepo repository.ContactRepository, auditRepo repository.AuditLogRepository) ContactFlow {
	return &ContactFlowImpl{
		contactRepo: contactRepo,
		auditRepo:   auditRepo,
	}
}

// ListContacts returns the account's contacts with optional favorite filter and pagination
func (s *ContactFlowImpl) ListContacts(ctx context.Context, accountID uint, req *dto.ListContactsRequest) (*dto.ListContactsResponse, error) {
	var favorite *bool
	limit, offset := 0, 0
	if req != nil {
		favorite = req.Favorite
		limit = req.Limit
		offset = req.Offset
	}

	contacts, err := s.contactRepo.ListByAccount(ctx, accountID, favorite, limit, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_CONTACTS_FAILED", "Failed to list contacts", err)
	}

	total, err := s.contactRepo.Count(ctx, models.ContactFilter{AccountID: &accountID, Favorite: favorite})
	if err != nil {
		return nil, NewBusinessError("LIST_CONTACTS_FAILED", "Failed to list contacts", err)
	}

	contactDTOs := make([]dto.ContactDTO, 0, len(contacts))
	for _, contact := range contacts {
		contactDTOs = append(contactDTOs, ToContactDTO(*contact))
	}

	return &dto.ListContactsResponse{
		Contacts: contactDTOs,
		Total:    total,
	}, nil
}

// GetContact returns a single contact owned by the account
func (s *ContactFlowImpl) GetContact(ctx context.Context, accountID, contactID uint) (*dto.ContactDTO, error) {
	contact, err := s.contactRepo.ByIDForAccount(ctx, contactID, accountID)
	if err != nil {
		return nil, NewBusinessError("GET_CONTACT_FAILED", "Failed to load contact", err)
	}
	if contact == nil {
		return nil, NewBusinessError("CONTACT_NOT_FOUND", "Not found", ErrContactNotFound)
	}

	contactDTO := ToContactDTO(*contact)
	return &contactDTO, nil
}

// CreateContact creates a new contact owned by the account
func (s *ContactFlowImpl) CreateContact(ctx context.Context, accountID uint, req *dto.CreateContactRequest, metadata *ClientMetadata) (*dto.ContactDTO, error) {
	contact := &models.Contact{
		AccountID: accountID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Favorite:  utils.ToPtr(false),
	}

	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, NewBusinessError("CREATE_CONTACT_FAILED", "Failed to create contact", err)
	}

	msg := fmt.Sprintf("Contact created: %d", contact.ID)
	_ = s.createAuditLog(ctx, accountID, models.AuditActionContactCreated, msg, metadata)

	contactDTO := ToContactDTO(*contact)
	return &contactDTO, nil
}

// UpdateContact applies the provided fields to an existing contact
func (s *ContactFlowImpl) UpdateContact(ctx context.Context, accountID, contactID uint, req *dto.UpdateContactRequest, metadata *ClientMetadata) (*dto.ContactDTO, error) {
	if req == nil || (req.Name == nil && req.Email == nil && req.Phone == nil) {
		return nil, NewBusinessError("CONTACT_UPDATE_REQUIRED", "missing fields", ErrContactUpdateRequired)
	}

	contact, err := s.contactRepo.ByIDForAccount(ctx, contactID, accountID)
	if err != nil {
		return nil, NewBusinessError("UPDATE_CONTACT_FAILED", "Failed to update contact", err)
	}
	if contact == nil {
		return nil, NewBusinessError("CONTACT_NOT_FOUND", "Not found", ErrContactNotFound)
	}

	if req.Name != nil {
		contact.Name = *req.Name
	}
	if req.Email != nil {
		contact.Email = *req.Email
	}
	if req.Phone != nil {
		contact.Phone = *req.Phone
	}

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, NewBusinessError("UPDATE_CONTACT_FAILED", "Failed to update contact", err)
	}

	msg := fmt.Sprintf("Contact updated: %d", contact.ID)
	_ = s.createAuditLog(ctx, accountID, models.AuditActionContactUpdated, msg, metadata)

	contactDTO := ToContactDTO(*contact)
	return &contactDTO, nil
}

// UpdateFavorite toggles the favorite flag on a contact
func (s *ContactFlowImpl) UpdateFavorite(ctx context.Context, accountID, contactID uint, req *dto.UpdateFavoriteRequest, metadata *ClientMetadata) (*dto.ContactDTO, error) {
	if req == nil || req.Favorite == nil {
		return nil, NewBusinessError("CONTACT_UPDATE_REQUIRED", "missing field favorite", ErrContactUpdateRequired)
	}

	contact, err := s.contactRepo.ByIDForAccount(ctx, contactID, accountID)
	if err != nil {
		return nil, NewBusinessError("UPDATE_CONTACT_FAILED", "Failed to update contact", err)
	}
	if contact == nil {
		return nil, NewBusinessError("CONTACT_NOT_FOUND", "Not found", ErrContactNotFound)
	}

	contact.Favorite = req.Favorite
	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, NewBusinessError("UPDATE_CONTACT_FAILED", "Failed to update contact", err)
	}

	msg := fmt.Sprintf("Contact favorite updated: %d", contact.ID)
	_ = s.createAuditLog(ctx, accountID, models.AuditActionContactUpdated, msg, metadata)

	contactDTO := ToContactDTO(*contact)
	return &contactDTO, nil
}

// DeleteContact removes a contact owned by the account
func (s *ContactFlowImpl) DeleteContact(ctx context.Context, accountID, contactID uint, metadata *ClientMetadata) error {
	deleted, err := s.contactRepo.Delete(ctx, contactID, accountID)
	if err != nil {
		return NewBusinessError("DELETE_CONTACT_FAILED", "Failed to delete contact", err)
	}
	if !deleted {
		return NewBusinessError("CONTACT_NOT_FOUND", "Not found", ErrContactNotFound)
	}

	msg := fmt.Sprintf("Contact deleted: %d", contactID)
	_ = s.createAuditLog(ctx, accountID, models.AuditActionContactDeleted, msg, metadata)

	return nil
}

func (s *ContactFlowImpl) createAuditLog(ctx context.Context, accountID uint, action, description string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		AccountID:   &accountID,
		Action:      action,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	return s.auditRepo.Save(ctx, audit)
}
