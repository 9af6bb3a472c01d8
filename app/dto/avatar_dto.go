// Package dto provides request and response structures for the API layer
package dto

import (
	"io"
)

// UpdateAvatarRequest represents the avatar upload request
type UpdateAvatarRequest struct {
	AccountID        uint      `json:"account_id" validate:"required"`
	OriginalFilename string    `json:"original_filename" validate:"required"`
	FileSize         int64     `json:"file_size" validate:"required,gt=0"`
	ContentType      string    `json:"content_type"`
	File             io.Reader `json:"-"`
}

// UpdateAvatarResponse represents the avatar upload response
type UpdateAvatarResponse struct {
	AvatarURL string `json:"avatarURL"`
}
