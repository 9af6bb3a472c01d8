package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contactkeeper/accounts/app/dto"
	businessflow "github.com/contactkeeper/accounts/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAvatarFlow struct {
	resp *dto.UpdateAvatarResponse
	err  error
}

func (s *stubAvatarFlow) UpdateAvatar(ctx context.Context, req *dto.UpdateAvatarRequest, metadata *businessflow.ClientMetadata) (*dto.UpdateAvatarResponse, error) {
	return s.resp, s.err
}

func newAvatarTestApp(flow businessflow.AvatarFlow) *fiber.App {
	app := fiber.New()
	handler := NewAvatarHandler(flow)
	app.Patch("/api/v1/accounts/avatars", func(c fiber.Ctx) error {
		c.Locals("account_id", uint(1))
		return handler.UpdateAvatar(c)
	})
	return app
}

func avatarUploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("PATCH", "/api/v1/accounts/avatars", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUpdateAvatarHandler(t *testing.T) {
	t.Run("TooLargeFileIsBadRequest", func(t *testing.T) {
		flow := &stubAvatarFlow{err: businessflow.ErrAvatarTooLarge}
		app := newAvatarTestApp(flow)

		resp, err := app.Test(avatarUploadRequest(t, "huge.png", []byte("png-bytes")))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body := decodeResponse(t, resp)
		assert.Equal(t, "File is too large", body["message"])
	})

	t.Run("UnsupportedTypeIsBadRequest", func(t *testing.T) {
		flow := &stubAvatarFlow{err: businessflow.ErrUnsupportedAvatarType}
		app := newAvatarTestApp(flow)

		resp, err := app.Test(avatarUploadRequest(t, "notes.txt", []byte("plain text")))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		body := decodeResponse(t, resp)
		assert.Equal(t, "Unsupported avatar file type", body["message"])
	})

	t.Run("MissingFileIsBadRequest", func(t *testing.T) {
		app := newAvatarTestApp(&stubAvatarFlow{})

		req := httptest.NewRequest("PATCH", "/api/v1/accounts/avatars", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("SuccessReturnsAvatarURL", func(t *testing.T) {
		flow := &stubAvatarFlow{
			resp: &dto.UpdateAvatarResponse{AvatarURL: "/avatars/1_abc_photo.jpg"},
		}
		app := newAvatarTestApp(flow)

		resp, err := app.Test(avatarUploadRequest(t, "photo.jpg", []byte("jpeg-bytes")))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decodeResponse(t, resp)
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "/avatars/1_abc_photo.jpg", data["avatarURL"])
	})
}
