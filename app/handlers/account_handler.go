// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/contactkeeper/accounts/app/dto"
	"github.com/contactkeeper/accounts/app/middleware"
	businessflow "github.com/contactkeeper/accounts/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// AccountHandlerInterface defines the contract for account handlers
type AccountHandlerInterface interface {
	Register(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	Current(c fiber.Ctx) error
	Verify(c fiber.Ctx) error
	ResendVerification(c fiber.Ctx) error
}

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountFlow businessflow.AccountFlow
	validator   *validator.Validate
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountFlow businessflow.AccountFlow) *AccountHandler {
	return &AccountHandler{
		accountFlow: accountFlow,
		validator:   validator.New(),
	}
}

func (h *AccountHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AccountHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Register handles the account registration process
func (h *AccountHandler) Register(c fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.Register(h.createRequestContext(c, "/api/v1/accounts/register"), &req, metadata)
	if err != nil {
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email in use", "EMAIL_IN_USE", nil)
		}

		log.Println("Registration failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Registration failed", "REGISTER_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, fiber.Map{
		"user": result.Account,
	})
}

// Login handles account authentication
func (h *AccountHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.Login(h.createRequestContext(c, "/api/v1/accounts/login"), &req, metadata)
	if err != nil {
		// Unknown email and wrong password share one response on purpose
		if businessflow.IsAccountNotFound(err) || businessflow.IsIncorrectPassword(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Email or password is wrong", "INVALID_CREDENTIALS", nil)
		}
		if businessflow.IsEmailNotVerified(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Email is not verified", "EMAIL_NOT_VERIFIED", nil)
		}

		log.Println("Login failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", fiber.Map{
		"token":      result.Token,
		"token_type": "Bearer",
		"expires_in": result.ExpiresIn,
		"user":       result.Account,
	})
}

// Logout clears the account's active session
func (h *AccountHandler) Logout(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
	}

	claims, _ := middleware.GetTokenClaimsFromContext(c)
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	err := h.accountFlow.Logout(h.createRequestContext(c, "/api/v1/accounts/logout"), accountID, claims, metadata)
	if err != nil {
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
		}

		log.Println("Logout failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Logout failed", "LOGOUT_FAILED", nil)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Current returns the authenticated account
func (h *AccountHandler) Current(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
	}

	result, err := h.accountFlow.CurrentAccount(h.createRequestContext(c, "/api/v1/accounts/current"), accountID)
	if err != nil {
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
		}

		log.Println("Current account lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load account", "CURRENT_ACCOUNT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Current account", result)
}

// Verify consumes an email verification token
func (h *AccountHandler) Verify(c fiber.Ctx) error {
	token := c.Params("token")
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.VerifyEmail(h.createRequestContext(c, "/api/v1/accounts/verify"), token, metadata)
	if err != nil {
		if businessflow.IsVerificationTokenNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}

		log.Println("Verification failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Verification failed", "VERIFICATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, nil)
}

// ResendVerification resends the verification email
func (h *AccountHandler) ResendVerification(c fiber.Ctx) error {
	var req dto.ResendVerificationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.accountFlow.ResendVerification(h.createRequestContext(c, "/api/v1/accounts/verify"), &req, metadata)
	if err != nil {
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Email is wrong", "EMAIL_WRONG", nil)
		}
		if businessflow.IsAlreadyVerified(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Verification has already been passed", "ALREADY_VERIFIED", nil)
		}

		log.Println("Resend verification failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resend verification email", "RESEND_VERIFICATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, nil)
}

// createRequestContext creates a context with request-scoped values and timeout
func (h *AccountHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *AccountHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	// Create context with custom timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, businessflow.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, businessflow.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, businessflow.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, businessflow.CancelFuncKey, cancel) // Store cancel function for cleanup

	return ctx
}
