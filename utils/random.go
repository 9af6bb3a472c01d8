// Package utils provides utility functions for the application.
package utils

import (
	"crypto/rand"
	"fmt"
)

// urlSafeAlphabet matches the character set of URL-safe identifiers.
const urlSafeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// RandomURLSafe generates a random URL-safe string of the given length.
func RandomURLSafe(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = urlSafeAlphabet[int(b)&63]
	}

	return string(buf), nil
}
