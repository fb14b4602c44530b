// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Vidar.
// This file contains the MySQL implementation of the database store.
package db // import "github.com/vidar-vpn/vidar/internal/db"

import (
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/uptrace/bun"
	"github.com/vidar-vpn/vidar/internal/model"
)

// MySQLStore is the MySQL implementation of the Store interface, delegating
// to the shared Bun adapter with the mysqldialect configured in createBunDB.
type MySQLStore struct {
	bun *bun.DB
}

func (s *MySQLStore) AddNode(name, ip string) error            { return AddNodeBun(s.bun, name, ip) }
func (s *MySQLStore) GetNode(name string) (*model.Node, error) { return GetNodeBun(s.bun, name) }
func (s *MySQLStore) UpdateNode(n *model.Node) error           { return UpdateNodeBun(s.bun, n) }
func (s *MySQLStore) GetAllNodes() ([]model.Node, error)       { return GetAllNodesBun(s.bun) }

func (s *MySQLStore) AddAPIKey(k *model.APIKey) error             { return AddAPIKeyBun(s.bun, k) }
func (s *MySQLStore) GetAPIKey(key string) (*model.APIKey, error) { return GetAPIKeyBun(s.bun, key) }
func (s *MySQLStore) UpdateAPIKey(k *model.APIKey) error          { return UpdateAPIKeyBun(s.bun, k) }

func (s *MySQLStore) AddInviteKey(key string) error { return AddInviteKeyBun(s.bun, key) }
func (s *MySQLStore) InviteKeyValid(key string) (bool, error) {
	return InviteKeyValidBun(s.bun, key)
}
func (s *MySQLStore) ConsumeInviteKey(key string) (bool, error) {
	return ConsumeInviteKeyBun(s.bun, key)
}

func (s *MySQLStore) AddUser(u *model.User, inviteKey string) error {
	return AddUserBun(s.bun, u, inviteKey)
}
func (s *MySQLStore) GetUser(username string) (*model.User, error) {
	return GetUserBun(s.bun, username)
}
func (s *MySQLStore) UpdateUser(u *model.User) error { return UpdateUserBun(s.bun, u) }
func (s *MySQLStore) DebitForSubscription(username string, price int64) (bool, error) {
	return DebitForSubscriptionBun(s.bun, username, price)
}
func (s *MySQLStore) ActivateSubscription(username string) error {
	return ActivateSubscriptionBun(s.bun, username)
}

func (s *MySQLStore) AddDeposit(d *model.Deposit) error { return AddDepositBun(s.bun, d) }
func (s *MySQLStore) GetDeposit(id int64) (*model.Deposit, error) {
	return GetDepositBun(s.bun, id)
}
