// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/contactkeeper/accounts/app/dto"
	"github.com/contactkeeper/accounts/app/middleware"
	businessflow "github.com/contactkeeper/accounts/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ContactHandlerInterface defines the contract for contact handlers
type ContactHandlerInterface interface {
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	UpdateFavorite(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
}

// ContactHandler handles contact-related HTTP requests
type ContactHandler struct {
	contactFlow businessflow.ContactFlow
	validator   *validator.Validate
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactFlow businessflow.ContactFlow) *ContactHandler {
	return &ContactHandler{
		contactFlow: contactFlow,
		validator:   validator.New(),
	}
}

func (h *ContactHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ContactHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// List returns the authenticated account's contacts
func (h *ContactHandler) List(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
	}

	req := &dto.ListContactsRequest{}
	if raw := c.Query("favorite"); raw != "" {
		favorite, err := strconv.ParseBool(raw)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid favorite filter", "VALIDATION_ERROR", nil)
		}
		req.Favorite = &favorite
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid limit", "VALIDATION_ERROR", nil)
		}
		req.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid offset", "VALIDATION_ERROR", nil)
		}
		req.Offset = offset
	}

	result, err := h.contactFlow.ListContacts(h.createRequestContext(c, "/api/v1/contacts"), accountID, req)
	if err != nil {
		log.Println("List contacts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list contacts", "LIST_CONTACTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contacts", result)
}

// Get returns a single contact owned by the authenticated account
func (h *ContactHandler) Get(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
	}

	contactID, err := h.parseContactID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid contact id", "VALIDATION_ERROR", nil)
	}

	result, err := h.contactFlow.GetContact(h.createRequestContext(c, "/api/v1/contacts/:id"), accountID, contactID)
	if err != nil {
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Not found", "CONTACT_NOT_FOUND", nil)
		}

		log.Println("Get contact failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load contact", "GET_CONTACT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contact", result)
}

// Create adds a new contact to the authenticated account
func (h *ContactHandler) Create(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
	}

	var req dto.CreateContactRequest
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

	result, err := h.contactFlow.CreateContact(h.createRequestContext(c, "/api/v1/contacts"), accountID, &req, metadata)
	if err != nil {
		log.Println("Create contact failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create contact", "CREATE_CONTACT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Contact created", result)
}

// Update modifies an existing contact owned by the authenticated account
func (h *ContactHandler) Update(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
	}

	contactID, err := h.parseContactID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid contact id", "VALIDATION_ERROR", nil)
	}

	var req dto.UpdateContactRequest
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

	result, err := h.contactFlow.UpdateContact(h.createRequestContext(c, "/api/v1/contacts/:id"), accountID, contactID, &req, metadata)
	if err != nil {
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Not found", "CONTACT_NOT_FOUND", nil)
		}
		if businessflow.IsContactUpdateRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one field is required", "CONTACT_UPDATE_REQUIRED", nil)
		}

		log.Println("Update contact failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update contact", "UPDATE_CONTACT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contact updated", result)
}

// UpdateFavorite toggles the favorite flag on a contact
func (h *ContactHandler) UpdateFavorite(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
	}

	contactID, err := h.parseContactID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid contact id", "VALIDATION_ERROR", nil)
	}

	var req dto.UpdateFavoriteRequest
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

	result, err := h.contactFlow.UpdateFavorite(h.createRequestContext(c, "/api/v1/contacts/:id/favorite"), accountID, contactID, &req, metadata)
	if err != nil {
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Not found", "CONTACT_NOT_FOUND", nil)
		}
		if businessflow.IsContactUpdateRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Favorite is required", "CONTACT_UPDATE_REQUIRED", nil)
		}

		log.Println("Update favorite failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update contact", "UPDATE_CONTACT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contact updated", result)
}

// Delete removes a contact owned by the authenticated account
func (h *ContactHandler) Delete(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
	}

	contactID, err := h.parseContactID(c)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid contact id", "VALIDATION_ERROR", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	err = h.contactFlow.DeleteContact(h.createRequestContext(c, "/api/v1/contacts/:id"), accountID, contactID, metadata)
	if err != nil {
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Not found", "CONTACT_NOT_FOUND", nil)
		}

		log.Println("Delete contact failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete contact", "DELETE_CONTACT_FAILED", nil)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ContactHandler) parseContactID(c fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// createRequestContext creates a context with request-scoped values and timeout
func (h *ContactHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, businessflow.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, businessflow.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, businessflow.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, businessflow.CancelFuncKey, cancel)

	return ctx
}
