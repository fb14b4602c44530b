// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Vidar.
// This file contains the SQLite implementation of the database store.
package db // import "github.com/vidar-vpn/vidar/internal/db"

import (
	"github.com/uptrace/bun"
	"github.com/vidar-vpn/vidar/internal/model"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SqliteStore is the SQLite implementation of the Store interface. SQLite is
// the default backend and the one the test suite runs against.
type SqliteStore struct {
	bun *bun.DB
}

func (s *SqliteStore) AddNode(name, ip string) error            { return AddNodeBun(s.bun, name, ip) }
func (s *SqliteStore) GetNode(name string) (*model.Node, error) { return GetNodeBun(s.bun, name) }
func (s *SqliteStore) UpdateNode(n *model.Node) error           { return UpdateNodeBun(s.bun, n) }
func (s *SqliteStore) GetAllNodes() ([]model.Node, error)       { return GetAllNodesBun(s.bun) }

func (s *SqliteStore) AddAPIKey(k *model.APIKey) error            { return AddAPIKeyBun(s.bun, k) }
func (s *SqliteStore) GetAPIKey(key string) (*model.APIKey, error) { return GetAPIKeyBun(s.bun, key) }
func (s *SqliteStore) UpdateAPIKey(k *model.APIKey) error         { return UpdateAPIKeyBun(s.bun, k) }

func (s *SqliteStore) AddInviteKey(key string) error { return AddInviteKeyBun(s.bun, key) }
func (s *SqliteStore) InviteKeyValid(key string) (bool, error) {
	return InviteKeyValidBun(s.bun, key)
}
func (s *SqliteStore) ConsumeInviteKey(key string) (bool, error) {
	return ConsumeInviteKeyBun(s.bun, key)
}

func (s *SqliteStore) AddUser(u *model.User, inviteKey string) error {
	return AddUserBun(s.bun, u, inviteKey)
}
func (s *SqliteStore) GetUser(username string) (*model.User, error) {
	return GetUserBun(s.bun, username)
}
func (s *SqliteStore) UpdateUser(u *model.User) error { return UpdateUserBun(s.bun, u) }
func (s *SqliteStore) DebitForSubscription(username string, price int64) (bool, error) {
	return DebitForSubscriptionBun(s.bun, username, price)
}
func (s *SqliteStore) ActivateSubscription(username string) error {
	return ActivateSubscriptionBun(s.bun, username)
}

func (s *SqliteStore) AddDeposit(d *model.Deposit) error { return AddDepositBun(s.bun, d) }
func (s *SqliteStore) GetDeposit(id int64) (*model.Deposit, error) {
	return GetDepositBun(s.bun, id)
}
