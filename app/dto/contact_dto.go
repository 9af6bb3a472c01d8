// Package dto provides request and response structures for the API layer
package dto

// CreateContactRequest represents the contact creation request
type CreateContactRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone" validate:"required,max=30"`
}

// UpdateContactRequest represents the contact update request
type UpdateContactRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

// UpdateFavoriteRequest represents the favorite toggle request
type UpdateFavoriteRequest struct {
	Favorite *bool `json:"favorite" validate:"required"`
}

// ListContactsRequest represents the contact listing request
type ListContactsRequest struct {
	Favorite *bool `json:"favorite,omitempty"`
	Limit    int   `json:"limit,omitempty" validate:"omitempty,gte=1,lte=100"`
	Offset   int   `json:"offset,omitempty" validate:"omitempty,gte=0"`
}

// ContactDTO represents the public view of a contact
type ContactDTO struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Favorite  bool   `json:"favorite"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ListContactsResponse represents the contact listing response
type ListContactsResponse struct {
	Contacts []ContactDTO `json:"contacts"`
	Total    int64        `json:"total"`
}
