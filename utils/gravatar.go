// Package utils provides utility functions for the application.
package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// GravatarURL derives the Gravatar avatar URL for an email address.
// The email is trimmed and lowercased before hashing, per the Gravatar spec.
func GravatarURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := md5.Sum([]byte(normalized))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s", hex.EncodeToString(sum[:]))
}
