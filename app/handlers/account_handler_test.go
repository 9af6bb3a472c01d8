package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contactkeeper/accounts/app/dto"
	"github.com/contactkeeper/accounts/app/services"
	businessflow "github.com/contactkeeper/accounts/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAccountFlow returns canned responses so handler mapping can be tested
// without a database
type stubAccountFlow struct {
	registerResp *dto.RegisterResponse
	registerErr  error
	loginResp    *dto.LoginResponse
	loginErr     error
}

func (s *stubAccountFlow) Register(ctx context.Context, req *dto.RegisterRequest, metadata *businessflow.ClientMetadata) (*dto.RegisterResponse, error) {
	return s.registerResp, s.registerErr
}

func (s *stubAccountFlow) Login(ctx context.Context, req *dto.LoginRequest, metadata *businessflow.ClientMetadata) (*dto.LoginResponse, error) {
	return s.loginResp, s.loginErr
}

func (s *stubAccountFlow) Logout(ctx context.Context, accountID uint, claims *services.TokenClaims, metadata *businessflow.ClientMetadata) error {
	return nil
}

func (s *stubAccountFlow) CurrentAccount(ctx context.Context, accountID uint) (*dto.AccountDTO, error) {
	return nil, businessflow.NewBusinessError("NOT_AUTHORIZED", "Not authorized", businessflow.ErrAccountNotFound)
}

func (s *stubAccountFlow) VerifyEmail(ctx context.Context, token string, metadata *businessflow.ClientMetadata) (*dto.VerifyResponse, error) {
	return nil, businessflow.NewBusinessError("USER_NOT_FOUND", "User not found", businessflow.ErrVerificationTokenNotFound)
}

func (s *stubAccountFlow) ResendVerification(ctx context.Context, req *dto.ResendVerificationRequest, metadata *businessflow.ClientMetadata) (*dto.VerifyResponse, error) {
	return nil, businessflow.NewBusinessError("EMAIL_WRONG", "Email is wrong", businessflow.ErrAccountNotFound)
}

func newAccountTestApp(flow businessflow.AccountFlow) *fiber.App {
	app := fiber.New()
	handler := NewAccountHandler(flow)
	app.Post("/api/v1/accounts/register", handler.Register)
	app.Post("/api/v1/accounts/login", handler.Login)
	return app
}

func jsonRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestRegisterHandler(t *testing.T) {
	t.Run("AcceptsLowercaseDigitPassword", func(t *testing.T) {
		flow := &stubAccountFlow{
			registerResp: &dto.RegisterResponse{
				Account: dto.AccountDTO{
					Email:        "a@x.com",
					Subscription: "starter",
					AvatarURL:    "https://www.gravatar.com/avatar/abc",
				},
				Message: "Registration successful. Check your email to verify the account.",
			},
		}
		app := newAccountTestApp(flow)

		resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/accounts/register", `{"email":"a@x.com","password":"pw123456"}`))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	})

	t.Run("RegisterBodyExposesOnlyPublicFields", func(t *testing.T) {
		flow := &stubAccountFlow{
			registerResp: &dto.RegisterResponse{
				Account: dto.AccountDTO{
					Email:        "a@x.com",
					Subscription: "starter",
					AvatarURL:    "https://www.gravatar.com/avatar/abc",
				},
			},
		}
		app := newAccountTestApp(flow)

		resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/accounts/register", `{"email":"a@x.com","password":"pw123456"}`))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		body := decodeResponse(t, resp)
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		user, ok := data["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "a@x.com", user["email"])
		assert.Equal(t, "starter", user["subscription"])
		assert.NotEmpty(t, user["avatarURL"])
		assert.NotContains(t, user, "uuid")
		assert.NotContains(t, user, "verify")
		assert.NotContains(t, user, "id")
	})

	t.Run("RejectsTooShortPassword", func(t *testing.T) {
		app := newAccountTestApp(&stubAccountFlow{})

		resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/accounts/register", `{"email":"a@x.com","password":"pw1"}`))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("DuplicateEmailConflict", func(t *testing.T) {
		flow := &stubAccountFlow{
			registerErr: businessflow.NewBusinessError("EMAIL_IN_USE", "Email in use", businessflow.ErrEmailAlreadyExists),
		}
		app := newAccountTestApp(flow)

		resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/accounts/register", `{"email":"a@x.com","password":"pw123456"}`))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

		body := decodeResponse(t, resp)
		assert.Equal(t, "Email in use", body["message"])
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("UnverifiedAccountReturnsNotFound", func(t *testing.T) {
		flow := &stubAccountFlow{
			loginErr: businessflow.NewBusinessError("EMAIL_NOT_VERIFIED", "Email is not verified", businessflow.ErrEmailNotVerified),
		}
		app := newAccountTestApp(flow)

		resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/accounts/login", `{"email":"a@x.com","password":"pw123456"}`))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		body := decodeResponse(t, resp)
		assert.Equal(t, "Email is not verified", body["message"])
	})

	t.Run("BadCredentialsReturnUnauthorized", func(t *testing.T) {
		flow := &stubAccountFlow{
			loginErr: businessflow.NewBusinessError("INVALID_CREDENTIALS", "Email or password is wrong", businessflow.ErrIncorrectPassword),
		}
		app := newAccountTestApp(flow)

		resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/accounts/login", `{"email":"a@x.com","password":"pw123456"}`))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		body := decodeResponse(t, resp)
		assert.Equal(t, "Email or password is wrong", body["message"])
	})

	t.Run("ExpiresInComesFromIssuedToken", func(t *testing.T) {
		flow := &stubAccountFlow{
			loginResp: &dto.LoginResponse{
				Token:     "session-token",
				ExpiresIn: 120,
				Account:   dto.AccountDTO{Email: "a@x.com", Subscription: "starter"},
			},
		}
		app := newAccountTestApp(flow)

		resp, err := app.Test(jsonRequest(t, "POST", "/api/v1/accounts/login", `{"email":"a@x.com","password":"pw123456"}`))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		body := decodeResponse(t, resp)
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(120), data["expires_in"])
		assert.Equal(t, "session-token", data["token"])
	})
}
