// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

// package db provides the data access layer for Vidar.
// This file contains the PostgreSQL implementation of the database store.
package db // import "github.com/vidar-vpn/vidar/internal/db"

import (
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/uptrace/bun"
	"github.com/vidar-vpn/vidar/internal/model"
)

// PostgresStore is the PostgreSQL implementation of the Store interface.
// All operations delegate to the shared Bun adapter, which generates
// dialect-correct SQL through the pgdialect configured in createBunDB.
type PostgresStore struct {
	bun *bun.DB
}

func (s *PostgresStore) AddNode(name, ip string) error            { return AddNodeBun(s.bun, name, ip) }
func (s *PostgresStore) GetNode(name string) (*model.Node, error) { return GetNodeBun(s.bun, name) }
func (s *PostgresStore) UpdateNode(n *model.Node) error           { return UpdateNodeBun(s.bun, n) }
func (s *PostgresStore) GetAllNodes() ([]model.Node, error)       { return GetAllNodesBun(s.bun) }

func (s *PostgresStore) AddAPIKey(k *model.APIKey) error { return AddAPIKeyBun(s.bun, k) }
func (s *PostgresStore) GetAPIKey(key string) (*model.APIKey, error) {
	return GetAPIKeyBun(s.bun, key)
}
func (s *PostgresStore) UpdateAPIKey(k *model.APIKey) error { return UpdateAPIKeyBun(s.bun, k) }

func (s *PostgresStore) AddInviteKey(key string) error { return AddInviteKeyBun(s.bun, key) }
func (s *PostgresStore) InviteKeyValid(key string) (bool, error) {
	return InviteKeyValidBun(s.bun, key)
}
func (s *PostgresStore) ConsumeInviteKey(key string) (bool, error) {
	return ConsumeInviteKeyBun(s.bun, key)
}

func (s *PostgresStore) AddUser(u *model.User, inviteKey string) error {
	return AddUserBun(s.bun, u, inviteKey)
}
func (s *PostgresStore) GetUser(username string) (*model.User, error) {
	return GetUserBun(s.bun, username)
}
func (s *PostgresStore) UpdateUser(u *model.User) error { return UpdateUserBun(s.bun, u) }
func (s *PostgresStore) DebitForSubscription(username string, price int64) (bool, error) {
	return DebitForSubscriptionBun(s.bun, username, price)
}
func (s *PostgresStore) ActivateSubscription(username string) error {
	return ActivateSubscriptionBun(s.bun, username)
}

func (s *PostgresStore) AddDeposit(d *model.Deposit) error { return AddDepositBun(s.bun, d) }
func (s *PostgresStore) GetDeposit(id int64) (*model.Deposit, error) {
	return GetDepositBun(s.bun, id)
}
