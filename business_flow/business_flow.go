// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/contactkeeper/accounts/app/dto"
	"github.com/contactkeeper/accounts/models"
	"github.com/contactkeeper/accounts/utils"
)

// Context keys for request-scoped values set by the handlers
const (
	RequestIDKey  = "X-Request-ID"
	UserAgentKey  = "user_agent"
	IPAddressKey  = "ip_address"
	EndpointKey   = "endpoint"
	CancelFuncKey = "cancel_func"
)

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToAccountDTO converts an account model to its public DTO representation
func ToAccountDTO(account models.Account) dto.AccountDTO {
	return dto.AccountDTO{
		UUID:         account.UUID.String(),
		Email:        account.Email,
		Subscription: account.Subscription,
		AvatarURL:    account.AvatarURL,
		IsVerified:   account.IsVerified,
	}
}

// ToContactDTO converts a contact model to its public DTO representation
func ToContactDTO(contact models.Contact) dto.ContactDTO {
	return dto.ContactDTO{
		ID:        contact.ID,
		Name:      contact.Name,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Favorite:  utils.IsTrue(contact.Favorite),
		CreatedAt: contact.CreatedAt.Format(time.RFC3339),
		UpdatedAt: contact.UpdatedAt.Format(time.RFC3339),
	}
}
