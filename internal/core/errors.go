// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import "errors"

// Sentinel errors for the domain operations. Storage-level conditions
// (duplicates, lookup misses) surface as db.ErrDuplicate and db.ErrNotFound;
// everything else a caller needs to distinguish is one of these. Callers test
// with errors.Is; none of these are retried internally.
var (
	// ErrValidation marks malformed or out-of-policy input: a bad IP
	// literal, a too-short password, an unknown key status.
	ErrValidation = errors.New("invalid input")

	// ErrAuth marks a credential that is present but not authorized:
	// unknown token, wrong status, or mismatched owner. The three cases are
	// deliberately indistinguishable to callers.
	ErrAuth = errors.New("authentication failed")

	// ErrInvalidState marks an operation on a resource whose current state
	// forbids it, such as consuming a spent or unknown invite key.
	ErrInvalidState = errors.New("operation not permitted in current state")

	// ErrNotEnoughFunds marks a subscription purchase that no funding path
	// could cover.
	ErrNotEnoughFunds = errors.New("not enough funds")
)
