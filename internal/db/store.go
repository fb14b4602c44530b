// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"github.com/vidar-vpn/vidar/internal/model"
)

// Store defines the interface for all database operations in Vidar.
// This allows for multiple database backends to be implemented. All create
// methods are atomic insert-if-absent operations: a unique-key collision
// surfaces as ErrDuplicate, never as a second record.
type Store interface {
	// Node methods
	AddNode(name, ip string) error
	GetNode(name string) (*model.Node, error)
	UpdateNode(n *model.Node) error
	GetAllNodes() ([]model.Node, error)

	// API key methods
	AddAPIKey(k *model.APIKey) error
	GetAPIKey(key string) (*model.APIKey, error)
	UpdateAPIKey(k *model.APIKey) error

	// Invite key methods
	AddInviteKey(key string) error
	// InviteKeyValid reports whether the key exists and is unconsumed.
	// An unknown key is not an error, it is simply not valid.
	InviteKeyValid(key string) (bool, error)
	// ConsumeInviteKey marks the key used. It returns false when the key is
	// unknown or was already consumed; the check and the mark are one
	// guarded update, so two racing callers cannot both succeed.
	ConsumeInviteKey(key string) (bool, error)

	// User methods. AddUser consumes inviteKey in the same transaction as
	// the insert when inviteKey is non-empty, failing with ErrInviteSpent
	// if it cannot be consumed.
	AddUser(u *model.User, inviteKey string) error
	GetUser(username string) (*model.User, error)
	UpdateUser(u *model.User) error
	// DebitForSubscription atomically deducts price from the user's balance
	// and activates the subscription, but only if the balance covers it.
	// It returns false (and leaves the row untouched) otherwise.
	DebitForSubscription(username string, price int64) (bool, error)
	// ActivateSubscription flips sub_active without touching the balance.
	// Used when a purchase was settled over an external payment rail.
	ActivateSubscription(username string) error

	// Deposit methods. AddDeposit assigns d.DepositID from the storage
	// sequence and credits the owning user's balance with the gross amount
	// in the same transaction.
	AddDeposit(d *model.Deposit) error
	GetDeposit(id int64) (*model.Deposit, error)
}
