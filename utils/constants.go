package utils

import (
	"time"
)

// Token and session time constants
const (
	// SessionTokenTTL is the time-to-live for session tokens (23 hours)
	SessionTokenTTL = 23 * time.Hour

	// VerificationTokenLength is the length of email verification tokens
	VerificationTokenLength = 21

	// AvatarSuffixLength is the length of the random suffix in avatar filenames
	AvatarSuffixLength = 20
)

// Avatar processing constants
const (
	// MaxAvatarSizeBytes is the upload limit for avatar files (2 MiB)
	MaxAvatarSizeBytes = 2 * 1024 * 1024

	// AvatarDimension is the side length of normalized avatars in pixels
	AvatarDimension = 250

	// AvatarJPEGQuality is the JPEG quality used when re-encoding avatars
	AvatarJPEGQuality = 50
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
