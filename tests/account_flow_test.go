package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contactkeeper/accounts/app/dto"
	"github.com/contactkeeper/accounts/app/services"
	businessflow "github.com/contactkeeper/accounts/business_flow"
	"github.com/contactkeeper/accounts/models"
	"github.com/contactkeeper/accounts/repository"
	testingutil "github.com/contactkeeper/accounts/testing"
	"github.com/contactkeeper/accounts/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAccountFlow(t *testing.T, testDB *testingutil.TestDB) (businessflow.AccountFlow, repository.AccountRepository, repository.AuditLogRepository) {
	t.Helper()

	accountRepo := repository.NewAccountRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	tokenService, err := services.NewTokenService(
		23*time.Hour,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		"test-secret-key-for-jwt-signing-32-chars",
		nil,
	)
	require.NoError(t, err)

	notificationService := services.NewNotificationService(services.NewMockEmailProvider())

	flow := businessflow.NewAccountFlow(
		accountRepo,
		auditRepo,
		tokenService,
		notificationService,
		testDB.DB,
		"http://localhost:8080",
	)

	return flow, accountRepo, auditRepo
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")
}

func TestRegister(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, accountRepo, auditRepo := newAccountFlow(t, testDB)

		t.Run("SuccessfulRegistration", func(t *testing.T) {
			req := &dto.RegisterRequest{
				Email:    "john.doe@example.com",
				Password: "SecurePass123",
			}

			result, err := flow.Register(context.Background(), req, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, "john.doe@example.com", result.Account.Email)
			assert.Equal(t, models.SubscriptionStarter, result.Account.Subscription)
			assert.Contains(t, result.Account.AvatarURL, "gravatar.com/avatar/")

			// Only public fields come back; no identifier or verification state
			assert.Empty(t, result.Account.UUID)
			assert.Nil(t, result.Account.IsVerified)

			// Verify account was persisted
			account, err := accountRepo.ByEmail(context.Background(), "john.doe@example.com")
			require.NoError(t, err)
			require.NotNil(t, account)
			assert.NotEmpty(t, account.UUID)
			assert.NotEqual(t, "SecurePass123", account.PasswordHash)
			require.NotNil(t, account.VerificationToken)
			assert.Len(t, *account.VerificationToken, utils.VerificationTokenLength)
			assert.False(t, utils.IsTrue(account.IsVerified))
			assert.Nil(t, account.SessionToken)

			// Verify audit log was created
			auditLogs, err := auditRepo.ByFilter(context.Background(), models.AuditLogFilter{
				AccountID: &account.ID,
				Action:    utils.ToPtr(models.AuditActionAccountRegistered),
			})
			require.NoError(t, err)
			require.Len(t, auditLogs, 1)
			assert.True(t, utils.IsTrue(auditLogs[0].Success))
		})

		t.Run("DuplicateEmail", func(t *testing.T) {
			req := &dto.RegisterRequest{
				Email:    "dup@example.com",
				Password: "SecurePass123",
			}

			_, err := flow.Register(context.Background(), req, testMetadata())
			require.NoError(t, err)

			// Second registration with the same email must be rejected
			result, err := flow.Register(context.Background(), req, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		t.Run("UniqueIndexCatchesRacingInsert", func(t *testing.T) {
			hash, err := bcrypt.GenerateFromPassword([]byte("SecurePass123"), bcrypt.DefaultCost)
			require.NoError(t, err)

			first := &models.Account{
				UUID:         uuid.New(),
				Email:        "racer@example.com",
				PasswordHash: string(hash),
				Subscription: models.SubscriptionStarter,
				IsVerified:   utils.ToPtr(false),
			}
			require.NoError(t, accountRepo.Save(context.Background(), first))

			// A second insert that slipped past the existence check must
			// surface the database constraint as a typed error
			second := &models.Account{
				UUID:         uuid.New(),
				Email:        "racer@example.com",
				PasswordHash: string(hash),
				Subscription: models.SubscriptionStarter,
				IsVerified:   utils.ToPtr(false),
			}
			err = accountRepo.Save(context.Background(), second)
			require.Error(t, err)
			assert.True(t, errors.Is(err, repository.ErrDuplicateEmail))
		})

		t.Run("UniqueTokensPerAccount", func(t *testing.T) {
			first, err := flow.Register(context.Background(), &dto.RegisterRequest{
				Email:    "first@example.com",
				Password: "SecurePass123",
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, first)

			second, err := flow.Register(context.Background(), &dto.RegisterRequest{
				Email:    "second@example.com",
				Password: "SecurePass123",
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, second)

			a1, err := accountRepo.ByEmail(context.Background(), "first@example.com")
			require.NoError(t, err)
			a2, err := accountRepo.ByEmail(context.Background(), "second@example.com")
			require.NoError(t, err)
			require.NotNil(t, a1.VerificationToken)
			require.NotNil(t, a2.VerificationToken)
			assert.NotEqual(t, *a1.VerificationToken, *a2.VerificationToken)
			assert.NotEqual(t, a1.UUID, a2.UUID)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestVerifyEmail(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, accountRepo, _ := newAccountFlow(t, testDB)

		t.Run("SuccessfulVerification", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(false)
			require.NoError(t, err)
			require.NotNil(t, account.VerificationToken)

			result, err := flow.VerifyEmail(context.Background(), *account.VerificationToken, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, "Verification successful", result.Message)

			// The account is now verified and the token is consumed
			updated, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			require.NotNil(t, updated)
			assert.True(t, utils.IsTrue(updated.IsVerified))
			assert.Nil(t, updated.VerificationToken)
			require.NotNil(t, updated.VerifiedAt)
		})

		t.Run("TokenIsSingleUse", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(false)
			require.NoError(t, err)
			token := *account.VerificationToken

			_, err = flow.VerifyEmail(context.Background(), token, testMetadata())
			require.NoError(t, err)

			// A second use of the same token must fail as not found
			result, err := flow.VerifyEmail(context.Background(), token, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsVerificationTokenNotFound(err))
		})

		t.Run("UnknownToken", func(t *testing.T) {
			result, err := flow.VerifyEmail(context.Background(), "does-not-exist-token", testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsVerificationTokenNotFound(err))
		})

		t.Run("EmptyToken", func(t *testing.T) {
			result, err := flow.VerifyEmail(context.Background(), "", testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsVerificationTokenNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, accountRepo, auditRepo := newAccountFlow(t, testDB)

		t.Run("SuccessfulLogin", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			result, err := flow.Login(context.Background(), &dto.LoginRequest{
				Email:    account.Email,
				Password: "TestPass123",
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.NotEmpty(t, result.Token)
			assert.Equal(t, int64((23*time.Hour).Seconds()), result.ExpiresIn)
			assert.Equal(t, account.Email, result.Account.Email)

			// The session token is stored on the account
			updated, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			require.NotNil(t, updated.SessionToken)
			assert.Equal(t, result.Token, *updated.SessionToken)
			assert.True(t, updated.HasActiveSession())
			require.NotNil(t, updated.LastLoginAt)
		})

		t.Run("SecondLoginInvalidatesFirstSession", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			first, err := flow.Login(context.Background(), &dto.LoginRequest{
				Email:    account.Email,
				Password: "TestPass123",
			}, testMetadata())
			require.NoError(t, err)

			second, err := flow.Login(context.Background(), &dto.LoginRequest{
				Email:    account.Email,
				Password: "TestPass123",
			}, testMetadata())
			require.NoError(t, err)
			assert.NotEqual(t, first.Token, second.Token)

			// Only the latest token matches the stored session token
			updated, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			require.NotNil(t, updated.SessionToken)
			assert.Equal(t, second.Token, *updated.SessionToken)
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			result, err := flow.Login(context.Background(), &dto.LoginRequest{
				Email:    "nobody@example.com",
				Password: "TestPass123",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		t.Run("WrongPassword", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			result, err := flow.Login(context.Background(), &dto.LoginRequest{
				Email:    account.Email,
				Password: "WrongPass123",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsIncorrectPassword(err))

			// Failed login is audited
			auditLogs, err := auditRepo.ByFilter(context.Background(), models.AuditLogFilter{
				AccountID: &account.ID,
				Action:    utils.ToPtr(models.AuditActionLoginFailed),
			})
			require.NoError(t, err)
			require.NotEmpty(t, auditLogs)
			assert.False(t, utils.IsTrue(auditLogs[0].Success))
		})

		t.Run("UnverifiedAccount", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(false)
			require.NoError(t, err)

			result, err := flow.Login(context.Background(), &dto.LoginRequest{
				Email:    account.Email,
				Password: "TestPass123",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsEmailNotVerified(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLogout(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, accountRepo, _ := newAccountFlow(t, testDB)

		t.Run("SuccessfulLogout", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			_, err = flow.Login(context.Background(), &dto.LoginRequest{
				Email:    account.Email,
				Password: "TestPass123",
			}, testMetadata())
			require.NoError(t, err)

			err = flow.Logout(context.Background(), account.ID, nil, testMetadata())
			require.NoError(t, err)

			// The stored session token is cleared
			updated, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			assert.Nil(t, updated.SessionToken)
			assert.False(t, updated.HasActiveSession())
		})

		t.Run("LogoutIsIdempotent", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			err = flow.Logout(context.Background(), account.ID, nil, testMetadata())
			require.NoError(t, err)

			// Logging out again without a session still succeeds
			err = flow.Logout(context.Background(), account.ID, nil, testMetadata())
			require.NoError(t, err)
		})

		t.Run("UnknownAccount", func(t *testing.T) {
			err := flow.Logout(context.Background(), 999999, nil, testMetadata())
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCurrentAccount(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, _, _ := newAccountFlow(t, testDB)

		t.Run("ReturnsPublicFields", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			result, err := flow.CurrentAccount(context.Background(), account.ID)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, account.Email, result.Email)
			assert.Equal(t, account.UUID.String(), result.UUID)
			assert.Equal(t, models.SubscriptionStarter, result.Subscription)
			assert.True(t, utils.IsTrue(result.IsVerified))
		})

		t.Run("UnknownAccount", func(t *testing.T) {
			result, err := flow.CurrentAccount(context.Background(), 999999)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestResendVerification(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, accountRepo, auditRepo := newAccountFlow(t, testDB)

		t.Run("SuccessfulResend", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(false)
			require.NoError(t, err)
			originalToken := *account.VerificationToken

			result, err := flow.ResendVerification(context.Background(), &dto.ResendVerificationRequest{
				Email: account.Email,
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)

			// The stored token is reused, not rotated
			updated, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			require.NotNil(t, updated.VerificationToken)
			assert.Equal(t, originalToken, *updated.VerificationToken)

			auditLogs, err := auditRepo.ByFilter(context.Background(), models.AuditLogFilter{
				AccountID: &account.ID,
				Action:    utils.ToPtr(models.AuditActionVerificationResent),
			})
			require.NoError(t, err)
			require.Len(t, auditLogs, 1)
		})

		t.Run("AlreadyVerified", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			result, err := flow.ResendVerification(context.Background(), &dto.ResendVerificationRequest{
				Email: account.Email,
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAlreadyVerified(err))
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			result, err := flow.ResendVerification(context.Background(), &dto.ResendVerificationRequest{
				Email: "nobody@example.com",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSessionTokenValidation(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow, accountRepo, _ := newAccountFlow(t, testDB)

		tokenService, err := services.NewTokenService(
			23*time.Hour,
			"test-issuer",
			"test-audience",
			false,
			"",
			"",
			"test-secret-key-for-jwt-signing-32-chars",
			nil,
		)
		require.NoError(t, err)

		t.Run("IssuedTokenCarriesAccountID", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			result, err := flow.Login(context.Background(), &dto.LoginRequest{
				Email:    account.Email,
				Password: "TestPass123",
			}, testMetadata())
			require.NoError(t, err)

			claims, err := tokenService.ValidateToken(context.Background(), result.Token)
			require.NoError(t, err)
			assert.Equal(t, account.ID, claims.AccountID)
			assert.Equal(t, "session", claims.TokenType)
		})

		t.Run("SupersededTokenNoLongerMatchesStoredToken", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			first, err := flow.Login(context.Background(), &dto.LoginRequest{
				Email:    account.Email,
				Password: "TestPass123",
			}, testMetadata())
			require.NoError(t, err)

			_, err = flow.Login(context.Background(), &dto.LoginRequest{
				Email:    account.Email,
				Password: "TestPass123",
			}, testMetadata())
			require.NoError(t, err)

			// The first JWT still verifies cryptographically but no longer
			// matches the stored session token, which is what the gate checks
			claims, err := tokenService.ValidateToken(context.Background(), first.Token)
			require.NoError(t, err)
			require.NotNil(t, claims)

			updated, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			require.NotNil(t, updated.SessionToken)
			assert.NotEqual(t, first.Token, *updated.SessionToken)
		})

		return nil
	})
	require.NoError(t, err)
}
