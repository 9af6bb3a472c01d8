package businessflow

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/contactkeeper/accounts/app/dto"
	"github.com/contactkeeper/accounts/models"
	"github.com/contactkeeper/accounts/repository"
	"github.com/contactkeeper/accounts/utils"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// AvatarFlow defines operations for avatar uploads.
type AvatarFlow interface {
	UpdateAvatar(ctx context.Context, req *dto.UpdateAvatarRequest, metadata *ClientMetadata) (*dto.UpdateAvatarResponse, error)
}

// AvatarFlowImpl implements AvatarFlow.
type AvatarFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	avatarsDir  string
	publicPath  string
}

// NewAvatarFlow creates a new avatar flow instance.
func NewAvatarFlow(accountRepo repository.AccountRepository, auditRepo repository.AuditLogRepository, avatarsDir, publicPath string) AvatarFlow {
	return &AvatarFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		avatarsDir:  avatarsDir,
		publicPath:  publicPath,
	}
}

var allowedAvatarExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func (f *AvatarFlowImpl) UpdateAvatar(ctx context.Context, req *dto.UpdateAvatarRequest, metadata *ClientMetadata) (*dto.UpdateAvatarResponse, error) {
	if req == nil || req.File == nil {
		return nil, NewBusinessError("AVATAR_FILE_REQUIRED", "avatar file is required", ErrAvatarFileRequired)
	}

	account, err := f.accountRepo.ByID(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, NewBusinessError("NOT_AUTHORIZED", "Not authorized", ErrAccountNotFound)
	}

	if req.FileSize <= 0 {
		return nil, NewBusinessError("AVATAR_FILE_REQUIRED", "avatar file is required", ErrAvatarFileRequired)
	}
	if req.FileSize > utils.MaxAvatarSizeBytes {
		return nil, NewBusinessError("AVATAR_TOO_LARGE", "avatar file exceeds 2MB", ErrAvatarTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(req.OriginalFilename))
	if !allowedAvatarExts[ext] {
		return nil, NewBusinessError("UNSUPPORTED_AVATAR_TYPE", "avatar must be a jpg, jpeg, png, gif or webp image", ErrUnsupportedAvatarType)
	}

	img, err := decodeAvatarImage(req.File)
	if err != nil {
		return nil, err
	}

	normalized := normalizeAvatar(img)

	suffix, err := utils.RandomURLSafe(utils.AvatarSuffixLength)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%d_%s_%s", account.ID, suffix, filepath.Base(req.OriginalFilename))
	if err := f.saveAvatarToDisk(normalized, filename); err != nil {
		return nil, err
	}

	avatarURL := f.publicPath + "/" + filename
	if err := f.accountRepo.UpdateAvatarURL(ctx, account.ID, avatarURL); err != nil {
		_ = os.Remove(filepath.Join(f.avatarsDir, filename))
		return nil, err
	}

	msg := fmt.Sprintf("Avatar updated: %d", account.ID)
	_ = f.createAuditLog(ctx, account, msg, metadata)

	return &dto.UpdateAvatarResponse{AvatarURL: avatarURL}, nil
}

// decodeAvatarImage sniffs the content and decodes the image, enforcing the
// size limit while reading
func decodeAvatarImage(reader io.Reader) (image.Image, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	head = head[:n]

	detected := http.DetectContentType(head)
	if !strings.HasPrefix(detected, "image/") {
		return nil, NewBusinessError("UNSUPPORTED_AVATAR_TYPE", "file content is not an image", ErrUnsupportedAvatarType)
	}

	fullReader := io.MultiReader(bytes.NewReader(head), reader)
	limited := io.LimitReader(fullReader, utils.MaxAvatarSizeBytes+1)

	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > utils.MaxAvatarSizeBytes {
		return nil, NewBusinessError("AVATAR_TOO_LARGE", "avatar file exceeds 2MB", ErrAvatarTooLarge)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, NewBusinessError("UNSUPPORTED_AVATAR_TYPE", "failed to decode avatar image", ErrUnsupportedAvatarType)
	}

	return img, nil
}

// normalizeAvatar scales the image onto a square white canvas, preserving the
// aspect ratio
func normalizeAvatar(src image.Image) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	dim := utils.AvatarDimension
	var nw, nh int
	if w >= h {
		nw = dim
		nh = int(float64(h) * float64(dim) / float64(w))
	} else {
		nh = dim
		nw = int(float64(w) * float64(dim) / float64(h))
	}

	dst := image.NewRGBA(image.Rect(0, 0, dim, dim))
	imagedraw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, imagedraw.Src)

	// Center the scaled image on the canvas
	x0 := (dim - nw) / 2
	y0 := (dim - nh) / 2
	target := image.Rect(x0, y0, x0+nw, y0+nh)
	xdraw.CatmullRom.Scale(dst, target, src, b, xdraw.Over, nil)

	return dst
}

func (f *AvatarFlowImpl) saveAvatarToDisk(img image.Image, filename string) error {
	if err := os.MkdirAll(f.avatarsDir, 0o755); err != nil {
		return err
	}

	fullPath := filepath.Join(f.avatarsDir, filename)
	dst, err := os.Create(fullPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	if err := jpeg.Encode(dst, img, &jpeg.Options{Quality: utils.AvatarJPEGQuality}); err != nil {
		_ = os.Remove(fullPath)
		return err
	}

	return nil
}

func (f *AvatarFlowImpl) createAuditLog(ctx context.Context, account *models.Account, description string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		AccountID:   &account.ID,
		Action:      models.AuditActionAvatarUpdated,
		Description: &description,
		Success:     utils.ToPtr(true),
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	return f.auditRepo.Save(ctx, audit)
}
