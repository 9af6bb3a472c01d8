// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/contactkeeper/accounts/app/dto"
	"github.com/contactkeeper/accounts/app/middleware"
	businessflow "github.com/contactkeeper/accounts/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AvatarHandlerInterface defines the contract for avatar handlers
type AvatarHandlerInterface interface {
	UpdateAvatar(c fiber.Ctx) error
}

// AvatarHandler handles avatar upload HTTP requests
type AvatarHandler struct {
	avatarFlow businessflow.AvatarFlow
}

// NewAvatarHandler creates a new avatar handler
func NewAvatarHandler(avatarFlow businessflow.AvatarFlow) *AvatarHandler {
	return &AvatarHandler{
		avatarFlow: avatarFlow,
	}
}

func (h *AvatarHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AvatarHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// UpdateAvatar accepts a multipart upload and replaces the account's avatar
func (h *AvatarHandler) UpdateAvatar(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil || fileHeader == nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Avatar file is required", "AVATAR_FILE_REQUIRED", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read uploaded file", "AVATAR_FILE_UNREADABLE", nil)
	}
	defer file.Close()

	req := &dto.UpdateAvatarRequest{
		AccountID:        accountID,
		OriginalFilename: fileHeader.Filename,
		FileSize:         fileHeader.Size,
		ContentType:      fileHeader.Header.Get("Content-Type"),
		File:             file,
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.avatarFlow.UpdateAvatar(h.createRequestContext(c, "/api/v1/accounts/avatars"), req, metadata)
	if err != nil {
		if businessflow.IsAvatarFileRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Avatar file is required", "AVATAR_FILE_REQUIRED", nil)
		}
		if businessflow.IsAvatarTooLarge(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "File is too large", "AVATAR_TOO_LARGE", nil)
		}
		if businessflow.IsUnsupportedAvatarType(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported avatar file type", "UNSUPPORTED_AVATAR_TYPE", nil)
		}
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Not authorized", "NOT_AUTHORIZED", nil)
		}

		log.Println("Avatar update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update avatar", "AVATAR_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Avatar updated", result)
}

// createRequestContext creates a context with request-scoped values and timeout
func (h *AvatarHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, businessflow.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, businessflow.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, businessflow.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, businessflow.CancelFuncKey, cancel)

	return ctx
}
