// Package businessflow contains the core business logic and use cases for account workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/contactkeeper/accounts/app/dto"
	"github.com/contactkeeper/accounts/app/services"
	"github.com/contactkeeper/accounts/models"
	"github.com/contactkeeper/accounts/repository"
	"github.com/contactkeeper/accounts/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountFlow handles registration, verification and session business logic
type AccountFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Logout(ctx context.Context, accountID uint, claims *services.TokenClaims, metadata *ClientMetadata) error
	CurrentAccount(ctx context.Context, accountID uint) (*dto.AccountDTO, error)
	VerifyEmail(ctx context.Context, token string, metadata *ClientMetadata) (*dto.VerifyResponse, error)
	ResendVerification(ctx context.Context, req *dto.ResendVerificationRequest, metadata *ClientMetadata) (*dto.VerifyResponse, error)
}

// AccountFlowImpl implements the account business flow
type AccountFlowImpl struct {
	accountRepo     repository.AccountRepository
	auditRepo       repository.AuditLogRepository
	tokenService    services.TokenService
	notificationSvc services.NotificationService
	db              *gorm.DB
	publicBaseURL   string
}

// NewAccountFlow creates a new account flow instance
func NewAccountFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	notificationSvc services.NotificationService,
	db *gorm.DB,
	publicBaseURL string,
) AccountFlow {
	return &AccountFlowImpl{
		accountRepo:     accountRepo,
		auditRepo:       auditRepo,
		tokenService:    tokenService,
		notificationSvc: notificationSvc,
		db:              db,
		publicBaseURL:   publicBaseURL,
	}
}

// Register creates a new unverified account and sends the verification email
func (s *AccountFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error) {
	// Pre-check for duplicate email; the unique index still guards against races
	existing, err := s.accountRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("REGISTER_FAILED", "Registration failed", err)
	}
	if existing != nil {
		return nil, NewBusinessError("EMAIL_IN_USE", "Email in use", ErrEmailAlreadyExists)
	}

	var account *models.Account

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		account, err = s.createAccount(txCtx, req)
		return err
	})

	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, NewBusinessError("EMAIL_IN_USE", "Email in use", ErrEmailAlreadyExists)
		}

		errMsg := fmt.Sprintf("Registration failed: %s", err.Error())
		_ = s.createAuditLog(ctx, account, models.AuditActionAccountRegistered, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("REGISTER_FAILED", "Registration failed", err)
	}

	msg := fmt.Sprintf("Account registered: %d", account.ID)
	_ = s.createAuditLog(ctx, account, models.AuditActionAccountRegistered, msg, true, nil, metadata)

	// Send verification email outside the transaction so a delivery failure
	// never rolls back the account; resend covers delivery loss
	go func() {
		link := s.verificationLink(*account.VerificationToken)
		if err := s.notificationSvc.SendVerificationEmail(account.Email, link); err != nil {
			errMsg := fmt.Sprintf("Failed to send verification email: %v", err)
			_ = s.createAuditLog(context.Background(), account, models.AuditActionEmailSendFailed, errMsg, false, &errMsg, metadata)
		}
	}()

	// Only the public fields; never the hash, token, id or internal state
	return &dto.RegisterResponse{
		Account: dto.AccountDTO{
			Email:        account.Email,
			Subscription: account.Subscription,
			AvatarURL:    account.AvatarURL,
		},
		Message: "Registration successful. Check your email to verify the account.",
	}, nil
}

// Login authenticates an account and issues its single active session token
func (s *AccountFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	account, err := s.accountRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	// Unknown email and wrong password must be indistinguishable
	if account == nil {
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Email or password is wrong", ErrAccountNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		errMsg := "Login failed: incorrect password"
		_ = s.createAuditLog(ctx, account, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("INVALID_CREDENTIALS", "Email or password is wrong", ErrIncorrectPassword)
	}

	if !utils.IsTrue(account.IsVerified) {
		errMsg := "Login failed: email not verified"
		_ = s.createAuditLog(ctx, account, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("EMAIL_NOT_VERIFIED", "Email is not verified", ErrEmailNotVerified)
	}

	token, err := s.tokenService.GenerateSessionToken(account.ID)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		// Overwriting the stored token invalidates any previous session
		if err := s.accountRepo.UpdateSessionToken(txCtx, account.ID, &token); err != nil {
			return err
		}
		return s.accountRepo.UpdateLastLogin(txCtx, account.ID)
	})
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("Login successful: %d", account.ID)
	_ = s.createAuditLog(ctx, account, models.AuditActionLoginSuccessful, msg, true, nil, metadata)

	return &dto.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.tokenService.SessionTTL().Seconds()),
		Account:   ToAccountDTO(*account),
	}, nil
}

// Logout clears the stored session token and revokes the presented token.
// Clearing an already empty token is a no-op, which keeps logout idempotent.
func (s *AccountFlowImpl) Logout(ctx context.Context, accountID uint, claims *services.TokenClaims, metadata *ClientMetadata) error {
	account, err := s.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	if account == nil {
		return NewBusinessError("NOT_AUTHORIZED", "Not authorized", ErrAccountNotFound)
	}

	if err := s.accountRepo.UpdateSessionToken(ctx, accountID, nil); err != nil {
		return NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	if claims != nil {
		// Best effort; the cleared session token already rejects the JWT
		_ = s.tokenService.RevokeToken(ctx, claims)
	}

	msg := fmt.Sprintf("Logout: %d", accountID)
	_ = s.createAuditLog(ctx, account, models.AuditActionLogout, msg, true, nil, metadata)

	return nil
}

// CurrentAccount returns the public view of the authenticated account
func (s *AccountFlowImpl) CurrentAccount(ctx context.Context, accountID uint) (*dto.AccountDTO, error) {
	account, err := s.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("CURRENT_ACCOUNT_FAILED", "Failed to load account", err)
	}
	if account == nil {
		return nil, NewBusinessError("NOT_AUTHORIZED", "Not authorized", ErrAccountNotFound)
	}

	accountDTO := ToAccountDTO(*account)
	return &accountDTO, nil
}

// VerifyEmail consumes a verification token. A token that was already used
// no longer matches any row, so reuse surfaces as not found.
func (s *AccountFlowImpl) VerifyEmail(ctx context.Context, token string, metadata *ClientMetadata) (*dto.VerifyResponse, error) {
	if token == "" {
		return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrVerificationTokenNotFound)
	}

	var account *models.Account

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		account, err = s.accountRepo.MarkVerified(txCtx, token)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrVerificationTokenNotFound
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrVerificationTokenNotFound) {
			return nil, NewBusinessError("USER_NOT_FOUND", "User not found", ErrVerificationTokenNotFound)
		}
		return nil, NewBusinessError("VERIFICATION_FAILED", "Verification failed", err)
	}

	msg := fmt.Sprintf("Email verified: %d", account.ID)
	_ = s.createAuditLog(ctx, account, models.AuditActionEmailVerified, msg, true, nil, metadata)

	return &dto.VerifyResponse{Message: "Verification successful"}, nil
}

// ResendVerification resends the verification email reusing the stored token
func (s *AccountFlowImpl) ResendVerification(ctx context.Context, req *dto.ResendVerificationRequest, metadata *ClientMetadata) (*dto.VerifyResponse, error) {
	account, err := s.accountRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("RESEND_VERIFICATION_FAILED", "Failed to resend verification email", err)
	}
	if account == nil {
		return nil, NewBusinessError("EMAIL_WRONG", "Email is wrong", ErrAccountNotFound)
	}

	if utils.IsTrue(account.IsVerified) || account.VerificationToken == nil {
		return nil, NewBusinessError("ALREADY_VERIFIED", "Verification has already been passed", ErrAlreadyVerified)
	}

	link := s.verificationLink(*account.VerificationToken)
	if err := s.notificationSvc.SendVerificationEmail(account.Email, link); err != nil {
		errMsg := fmt.Sprintf("Failed to resend verification email: %v", err)
		_ = s.createAuditLog(ctx, account, models.AuditActionEmailSendFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("RESEND_VERIFICATION_FAILED", "Failed to resend verification email", err)
	}

	msg := fmt.Sprintf("Verification email resent: %d", account.ID)
	_ = s.createAuditLog(ctx, account, models.AuditActionVerificationResent, msg, true, nil, metadata)

	return &dto.VerifyResponse{Message: "Verification email sent"}, nil
}

// Private helper methods

func (s *AccountFlowImpl) createAccount(ctx context.Context, req *dto.RegisterRequest) (*models.Account, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	verificationToken, err := utils.RandomURLSafe(utils.VerificationTokenLength)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		UUID:              uuid.New(),
		Email:             req.Email,
		PasswordHash:      string(hashedPassword),
		Subscription:      models.SubscriptionStarter,
		AvatarURL:         utils.GravatarURL(req.Email),
		IsVerified:        utils.ToPtr(false),
		VerificationToken: &verificationToken,
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

func (s *AccountFlowImpl) verificationLink(token string) string {
	return fmt.Sprintf("%s/api/v1/accounts/verify/%s", s.publicBaseURL, token)
}

func (s *AccountFlowImpl) createAuditLog(ctx context.Context, account *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var accountID *uint
	if account != nil {
		accountID = &account.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		AccountID:    accountID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return s.auditRepo.Save(ctx, audit)
}
