// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/vidar-vpn/vidar/internal/model"
)

// NodeModel maps the `nodes` table for Bun queries.
type NodeModel struct {
	bun.BaseModel `bun:"table:nodes"`
	Name          string  `bun:"name,pk"`
	IP            string  `bun:"ip"`
	Heartbeat     int64   `bun:"heartbeat"`
	SelfCheck     bool    `bun:"selfcheck"`
	Uptime        string  `bun:"uptime"`
	UserCount     int     `bun:"usercount"`
	Throughput    int64   `bun:"throughput"`
	CPU           float64 `bun:"cpu"`
}

// APIKeyModel maps the `api_keys` table.
type APIKeyModel struct {
	bun.BaseModel `bun:"table:api_keys"`
	Key           string `bun:"key,pk"`
	Name          string `bun:"name"`
	Status        string `bun:"status"`
}

// InviteKeyModel maps the `invite_keys` table. A consumed key keeps its row;
// used_at records when it was spent.
type InviteKeyModel struct {
	bun.BaseModel `bun:"table:invite_keys"`
	Key           string       `bun:"key,pk"`
	UsedAt        sql.NullTime `bun:"used_at"`
}

// UserModel maps the `users` table.
type UserModel struct {
	bun.BaseModel  `bun:"table:users"`
	Username       string         `bun:"username,pk"`
	HashedPassword string         `bun:"hashed_passwd"`
	Email          sql.NullString `bun:"email"`
	DownloadLeft   int64          `bun:"dl_left"`
	CreditISK      int64          `bun:"credit_isk"`
	SubActive      bool           `bun:"sub_active"`
}

// DepositModel maps the `deposits` table.
type DepositModel struct {
	bun.BaseModel `bun:"table:deposits"`
	DepositID     int64     `bun:"depositid,pk,autoincrement"`
	Invoice       string    `bun:"invoice"`
	Date          time.Time `bun:"date"`
	Username      string    `bun:"username"`
	Amount        int64     `bun:"amount"`
	Method        string    `bun:"method"`
	VATRate       float64   `bun:"vat_rate"`
	Fees          int64     `bun:"fees"`
}

// --- Mapping helpers (centralized conversions) ---

func nodeModelToModel(nm NodeModel) model.Node {
	return model.Node{
		Name:       nm.Name,
		IP:         nm.IP,
		Heartbeat:  nm.Heartbeat,
		SelfCheck:  nm.SelfCheck,
		Uptime:     nm.Uptime,
		UserCount:  nm.UserCount,
		Throughput: nm.Throughput,
		CPU:        nm.CPU,
	}
}

func userModelToModel(um UserModel) model.User {
	u := model.User{
		Username:       um.Username,
		HashedPassword: um.HashedPassword,
		DownloadLeft:   um.DownloadLeft,
		CreditISK:      um.CreditISK,
		SubActive:      um.SubActive,
	}
	if um.Email.Valid {
		u.Email = um.Email.String
	}
	return u
}

func depositModelToModel(dm DepositModel) model.Deposit {
	return model.Deposit{
		DepositID: dm.DepositID,
		Invoice:   dm.Invoice,
		Date:      dm.Date,
		Username:  dm.Username,
		Amount:    dm.Amount,
		Method:    dm.Method,
		VATRate:   dm.VATRate,
		Fees:      dm.Fees,
	}
}

// --- Node operations ---

// AddNodeBun inserts a fresh node with all metrics at their defaults.
func AddNodeBun(bdb *bun.DB, name, ip string) error {
	ctx := context.Background()
	nm := &NodeModel{Name: name, IP: ip, Uptime: model.DefaultUptime}
	if _, err := bdb.NewInsert().Model(nm).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// GetNodeBun returns a node by name, or ErrNotFound.
func GetNodeBun(bdb *bun.DB, name string) (*model.Node, error) {
	ctx := context.Background()
	var nm NodeModel
	err := bdb.NewSelect().Model(&nm).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	n := nodeModelToModel(nm)
	return &n, nil
}

// UpdateNodeBun persists the mutable metric fields of a node.
func UpdateNodeBun(bdb *bun.DB, n *model.Node) error {
	ctx := context.Background()
	res, err := bdb.NewUpdate().Model((*NodeModel)(nil)).
		Set("heartbeat = ?", n.Heartbeat).
		Set("selfcheck = ?", n.SelfCheck).
		Set("uptime = ?", n.Uptime).
		Set("usercount = ?", n.UserCount).
		Set("throughput = ?", n.Throughput).
		Set("cpu = ?", n.CPU).
		Where("name = ?", n.Name).
		Exec(ctx)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

// GetAllNodesBun returns all nodes ordered by name.
func GetAllNodesBun(bdb *bun.DB) ([]model.Node, error) {
	ctx := context.Background()
	var nms []NodeModel
	if err := bdb.NewSelect().Model(&nms).OrderExpr("name").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Node, 0, len(nms))
	for _, nm := range nms {
		out = append(out, nodeModelToModel(nm))
	}
	return out, nil
}

// --- API key operations ---

// AddAPIKeyBun inserts a new API key record.
func AddAPIKeyBun(bdb *bun.DB, k *model.APIKey) error {
	ctx := context.Background()
	km := &APIKeyModel{Key: k.Key, Name: k.Name, Status: string(k.Status)}
	if _, err := bdb.NewInsert().Model(km).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// GetAPIKeyBun returns the record for a token, or ErrNotFound.
func GetAPIKeyBun(bdb *bun.DB, key string) (*model.APIKey, error) {
	ctx := context.Background()
	var km APIKeyModel
	err := bdb.NewSelect().Model(&km).Where("? = ?", bun.Ident("key"), key).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &model.APIKey{Key: km.Key, Name: km.Name, Status: model.KeyStatus(km.Status)}, nil
}

// UpdateAPIKeyBun persists owner/status mutations for an existing key.
func UpdateAPIKeyBun(bdb *bun.DB, k *model.APIKey) error {
	ctx := context.Background()
	res, err := bdb.NewUpdate().Model((*APIKeyModel)(nil)).
		Set("name = ?", k.Name).
		Set("status = ?", string(k.Status)).
		Where("? = ?", bun.Ident("key"), k.Key).
		Exec(ctx)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

// --- Invite key operations ---

// AddInviteKeyBun inserts a fresh, unconsumed invite key.
func AddInviteKeyBun(bdb *bun.DB, key string) error {
	ctx := context.Background()
	if _, err := bdb.NewInsert().Model(&InviteKeyModel{Key: key}).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return nil
}

// InviteKeyValidBun reports whether the key exists and is unconsumed.
func InviteKeyValidBun(bdb *bun.DB, key string) (bool, error) {
	ctx := context.Background()
	count, err := bdb.NewSelect().Model((*InviteKeyModel)(nil)).
		Where("? = ? AND used_at IS NULL", bun.Ident("key"), key).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// consumeInvite runs the guarded consume update on a DB or transaction.
func consumeInvite(ctx context.Context, idb bun.IDB, key string) (bool, error) {
	res, err := idb.NewUpdate().Model((*InviteKeyModel)(nil)).
		Set("used_at = ?", time.Now().UTC()).
		Where("? = ? AND used_at IS NULL", bun.Ident("key"), key).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ConsumeInviteKeyBun marks the key used; false means unknown or spent.
func ConsumeInviteKeyBun(bdb *bun.DB, key string) (bool, error) {
	return consumeInvite(context.Background(), bdb, key)
}

// --- User operations ---

func userToUserModel(u *model.User) *UserModel {
	return &UserModel{
		Username:       u.Username,
		HashedPassword: u.HashedPassword,
		Email:          sql.NullString{String: u.Email, Valid: u.Email != ""},
		DownloadLeft:   u.DownloadLeft,
		CreditISK:      u.CreditISK,
		SubActive:      u.SubActive,
	}
}

// AddUserBun inserts a user. When inviteKey is non-empty the key is consumed
// in the same transaction; ErrInviteSpent is returned (and nothing is
// inserted) when it cannot be.
func AddUserBun(bdb *bun.DB, u *model.User, inviteKey string) error {
	ctx := context.Background()
	if inviteKey == "" {
		if _, err := bdb.NewInsert().Model(userToUserModel(u)).Exec(ctx); err != nil {
			return MapDBError(err)
		}
		return nil
	}

	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	consumed, err := consumeInvite(ctx, tx, inviteKey)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInviteSpent
	}
	if _, err := tx.NewInsert().Model(userToUserModel(u)).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	return tx.Commit()
}

// GetUserBun returns a user by username, or ErrNotFound.
func GetUserBun(bdb *bun.DB, username string) (*model.User, error) {
	ctx := context.Background()
	var um UserModel
	err := bdb.NewSelect().Model(&um).Where("username = ?", username).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u := userModelToModel(um)
	return &u, nil
}

// UpdateUserBun persists the mutable account fields.
func UpdateUserBun(bdb *bun.DB, u *model.User) error {
	ctx := context.Background()
	res, err := bdb.NewUpdate().Model((*UserModel)(nil)).
		Set("email = ?", sql.NullString{String: u.Email, Valid: u.Email != ""}).
		Set("dl_left = ?", u.DownloadLeft).
		Set("credit_isk = ?", u.CreditISK).
		Set("sub_active = ?", u.SubActive).
		Where("username = ?", u.Username).
		Exec(ctx)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

// DebitForSubscriptionBun deducts price and activates the subscription in a
// single guarded update. The balance check and the debit are one statement,
// so two racing purchases cannot both spend the same credit.
func DebitForSubscriptionBun(bdb *bun.DB, username string, price int64) (bool, error) {
	ctx := context.Background()
	res, err := bdb.NewUpdate().Model((*UserModel)(nil)).
		Set("credit_isk = credit_isk - ?", price).
		Set("sub_active = ?", true).
		Where("username = ? AND credit_isk >= ?", username, price).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ActivateSubscriptionBun flips sub_active without a debit.
func ActivateSubscriptionBun(bdb *bun.DB, username string) error {
	ctx := context.Background()
	res, err := bdb.NewUpdate().Model((*UserModel)(nil)).
		Set("sub_active = ?", true).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return err
	}
	return errIfNoRows(res)
}

// --- Deposit operations ---

// AddDepositBun inserts the deposit and credits the owning user's balance
// with the gross amount in one transaction. The storage-assigned id is
// written back into d.DepositID.
func AddDepositBun(bdb *bun.DB, d *model.Deposit) error {
	ctx := context.Background()

	tx, err := bdb.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	dm := &DepositModel{
		Invoice:  d.Invoice,
		Date:     d.Date,
		Username: d.Username,
		Amount:   d.Amount,
		Method:   d.Method,
		VATRate:  d.VATRate,
		Fees:     d.Fees,
	}
	// Returning covers Postgres; SQLite and MySQL fill the pk from the
	// driver's last-insert id.
	if _, err := tx.NewInsert().Model(dm).Returning("depositid").Exec(ctx); err != nil {
		return MapDBError(err)
	}

	res, err := tx.NewUpdate().Model((*UserModel)(nil)).
		Set("credit_isk = credit_isk + ?", d.Amount).
		Where("username = ?", d.Username).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("crediting deposit for %q: %w", d.Username, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	d.DepositID = dm.DepositID
	return nil
}

// GetDepositBun returns a deposit by id, or ErrNotFound.
func GetDepositBun(bdb *bun.DB, id int64) (*model.Deposit, error) {
	ctx := context.Background()
	var dm DepositModel
	err := bdb.NewSelect().Model(&dm).Where("depositid = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d := depositModelToModel(dm)
	return &d, nil
}

// errIfNoRows maps an update that touched nothing to ErrNotFound.
func errIfNoRows(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
