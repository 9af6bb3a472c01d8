// Package dto provides request and response structures for the API layer
package dto

// RegisterRequest represents the account registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// RegisterResponse represents the account registration response
type RegisterResponse struct {
	Account AccountDTO `json:"user"`
	Message string     `json:"message,omitempty"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresIn int64      `json:"expires_in"`
	Account   AccountDTO `json:"user"`
}

// ResendVerificationRequest represents the reverification request
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// VerifyResponse represents the email verification response
type VerifyResponse struct {
	Message string `json:"message"`
}

// AccountDTO represents the public view of an account
type AccountDTO struct {
	UUID         string `json:"uuid,omitempty"`
	Email        string `json:"email"`
	Subscription string `json:"subscription"`
	AvatarURL    string `json:"avatarURL"`
	IsVerified   *bool  `json:"verify,omitempty"`
}
