// Copyright (c) 2025 NEZ Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

var ErrInvalidModeratorKey = errors.New("invalid moderator key")

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidateModeratorKey checks the provided key against the configured
// secret in constant time.
func ValidateModeratorKey(provided, configured string) error {
	if !hmac.Equal([]byte(provided), []byte(configured)) {
		return ErrInvalidModeratorKey
	}
	return nil
}
