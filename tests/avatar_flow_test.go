package tests

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/contactkeeper/accounts/app/dto"
	businessflow "github.com/contactkeeper/accounts/business_flow"
	"github.com/contactkeeper/accounts/models"
	"github.com/contactkeeper/accounts/repository"
	testingutil "github.com/contactkeeper/accounts/testing"
	"github.com/contactkeeper/accounts/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAvatarFlow(t *testing.T, testDB *testingutil.TestDB, avatarsDir string) (businessflow.AvatarFlow, repository.AccountRepository, repository.AuditLogRepository) {
	t.Helper()

	accountRepo := repository.NewAccountRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	return businessflow.NewAvatarFlow(accountRepo, auditRepo, avatarsDir, "/avatars"), accountRepo, auditRepo
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUpdateAvatar(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		avatarsDir := t.TempDir()
		flow, accountRepo, auditRepo := newAvatarFlow(t, testDB, avatarsDir)

		t.Run("SuccessfulUpload", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			data := testPNG(t, 600, 400)
			result, err := flow.UpdateAvatar(context.Background(), &dto.UpdateAvatarRequest{
				AccountID:        account.ID,
				OriginalFilename: "profile.png",
				FileSize:         int64(len(data)),
				ContentType:      "image/png",
				File:             bytes.NewReader(data),
			}, testMetadata())
			require.NoError(t, err)
			require.NotNil(t, result)

			// URL format: /avatars/<accountID>_<random suffix>_<original name>
			prefix := fmt.Sprintf("/avatars/%d_", account.ID)
			assert.True(t, strings.HasPrefix(result.AvatarURL, prefix))
			assert.True(t, strings.HasSuffix(result.AvatarURL, "_profile.png"))

			filename := strings.TrimPrefix(result.AvatarURL, "/avatars/")
			parts := strings.SplitN(filename, "_", 3)
			require.Len(t, parts, 3)
			assert.Len(t, parts[1], utils.AvatarSuffixLength)

			// The stored file is a square JPEG of the target dimension
			f, err := os.Open(filepath.Join(avatarsDir, filename))
			require.NoError(t, err)
			defer f.Close()

			img, err := jpeg.Decode(f)
			require.NoError(t, err)
			assert.Equal(t, utils.AvatarDimension, img.Bounds().Dx())
			assert.Equal(t, utils.AvatarDimension, img.Bounds().Dy())

			// The account row points at the new avatar
			updated, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			assert.Equal(t, result.AvatarURL, updated.AvatarURL)

			auditLogs, err := auditRepo.ByFilter(context.Background(), models.AuditLogFilter{
				AccountID: &account.ID,
				Action:    utils.ToPtr(models.AuditActionAvatarUpdated),
			})
			require.NoError(t, err)
			require.Len(t, auditLogs, 1)
		})

		t.Run("ReplacingAvatarKeepsNewURLOnly", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			data := testPNG(t, 100, 100)
			first, err := flow.UpdateAvatar(context.Background(), &dto.UpdateAvatarRequest{
				AccountID:        account.ID,
				OriginalFilename: "one.png",
				FileSize:         int64(len(data)),
				File:             bytes.NewReader(data),
			}, testMetadata())
			require.NoError(t, err)

			second, err := flow.UpdateAvatar(context.Background(), &dto.UpdateAvatarRequest{
				AccountID:        account.ID,
				OriginalFilename: "two.png",
				FileSize:         int64(len(data)),
				File:             bytes.NewReader(data),
			}, testMetadata())
			require.NoError(t, err)
			assert.NotEqual(t, first.AvatarURL, second.AvatarURL)

			updated, err := accountRepo.ByID(context.Background(), account.ID)
			require.NoError(t, err)
			assert.Equal(t, second.AvatarURL, updated.AvatarURL)
		})

		t.Run("MissingFile", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			result, err := flow.UpdateAvatar(context.Background(), &dto.UpdateAvatarRequest{
				AccountID:        account.ID,
				OriginalFilename: "profile.png",
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAvatarFileRequired(err))
		})

		t.Run("DeclaredSizeOverLimit", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			data := testPNG(t, 100, 100)
			result, err := flow.UpdateAvatar(context.Background(), &dto.UpdateAvatarRequest{
				AccountID:        account.ID,
				OriginalFilename: "huge.png",
				FileSize:         utils.MaxAvatarSizeBytes + 1,
				File:             bytes.NewReader(data),
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAvatarTooLarge(err))
		})

		t.Run("UnsupportedExtension", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			data := testPNG(t, 100, 100)
			result, err := flow.UpdateAvatar(context.Background(), &dto.UpdateAvatarRequest{
				AccountID:        account.ID,
				OriginalFilename: "document.pdf",
				FileSize:         int64(len(data)),
				File:             bytes.NewReader(data),
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsUnsupportedAvatarType(err))
		})

		t.Run("NonImageContentWithImageExtension", func(t *testing.T) {
			account, err := fixtures.CreateTestAccount(true)
			require.NoError(t, err)

			data := []byte("definitely not image bytes, just some plain text content here")
			result, err := flow.UpdateAvatar(context.Background(), &dto.UpdateAvatarRequest{
				AccountID:        account.ID,
				OriginalFilename: "sneaky.png",
				FileSize:         int64(len(data)),
				File:             bytes.NewReader(data),
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsUnsupportedAvatarType(err))
		})

		t.Run("UnknownAccount", func(t *testing.T) {
			data := testPNG(t, 100, 100)
			result, err := flow.UpdateAvatar(context.Background(), &dto.UpdateAvatarRequest{
				AccountID:        999999,
				OriginalFilename: "profile.png",
				FileSize:         int64(len(data)),
				File:             bytes.NewReader(data),
			}, testMetadata())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, businessflow.IsAccountNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
