// Package testing provides test utilities and database setup for testing the account service
package testing

import (
	"fmt"
	"math/rand"

	"github.com/contactkeeper/accounts/models"
	"github.com/contactkeeper/accounts/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAccount creates a test account, verified or not
func (tf *TestFixtures) CreateTestAccount(verified bool) (*models.Account, error) {
	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)
	email := fmt.Sprintf("john.doe.%s@example.com", randomDigits)

	account := &models.Account{
		UUID:         uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Subscription: models.SubscriptionStarter,
		AvatarURL:    utils.GravatarURL(email),
		IsVerified:   utils.ToPtr(verified),
	}

	if verified {
		account.VerifiedAt = utils.UTCNowPtr()
	} else {
		token, err := utils.RandomURLSafe(utils.VerificationTokenLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate verification token: %w", err)
		}
		account.VerificationToken = &token
	}

	err = tf.DB.DB.Create(account).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}

	return account, nil
}

// CreateTestContact creates a test contact owned by the given account
func (tf *TestFixtures) CreateTestContact(accountID uint) (*models.Contact, error) {
	randomDigits := fmt.Sprintf("%06d", rand.Intn(900000)+100000)

	contact := &models.Contact{
		AccountID: accountID,
		Name:      fmt.Sprintf("Contact %s", randomDigits),
		Email:     fmt.Sprintf("contact.%s@example.com", randomDigits),
		Phone:     fmt.Sprintf("+1555%s", randomDigits),
		Favorite:  utils.ToPtr(false),
	}

	err := tf.DB.DB.Create(contact).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test contact: %w", err)
	}

	return contact, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(accountID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		AccountID:   accountID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	err := tf.DB.DB.Create(audit).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}

// CreateMultipleTestContacts creates several contacts for an account
func (tf *TestFixtures) CreateMultipleTestContacts(accountID uint, count int) ([]*models.Contact, error) {
	var contacts []*models.Contact
	for i := 0; i < count; i++ {
		contact, err := tf.CreateTestContact(accountID)
		if err != nil {
			return nil, fmt.Errorf("failed to create contact %d: %w", i, err)
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}
