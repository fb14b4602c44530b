// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted password length in bytes.
const MinPasswordLength = 8

// HashPassword derives a salted one-way hash of the password. The salt is
// generated per call, so hashing the same password twice yields different
// hashes; use ComparePassword for verification, never string equality.
func HashPassword(password Secret) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword reports whether the plaintext matches the stored hash.
// It never returns an error on mismatch, only false.
func ComparePassword(password Secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
