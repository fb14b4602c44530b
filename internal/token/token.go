// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

// Package token generates the opaque bearer tokens used for API keys and
// invite keys. Tokens carry no structure and are never signed; their security
// rests entirely on unguessability, so they are drawn from the operating
// system's CSPRNG and rendered as lowercase hex.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Bytes is the entropy of a generated token. 32 bytes (64 hex digits) makes
// exact-match lookup the only practical way to find a key.
const Bytes = 32

// NewHex returns a fresh random token as a lowercase hex string.
func NewHex() (string, error) {
	buf := make([]byte, Bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
