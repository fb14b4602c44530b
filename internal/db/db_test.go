// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"testing"
	"time"

	"github.com/vidar-vpn/vidar/internal/model"
)

// newTestStore opens a fresh in-memory SQLite store named after the test, so
// parallel tests never share a database.
func newTestStore(t *testing.T) Store {
	t.Helper()
	dsn := "file:test_" + t.Name() + "?mode=memory&cache=shared"
	s, err := New("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	return s
}

func TestNodeRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddNode("relay-1", "10.0.0.1"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	n, err := s.GetNode("relay-1")
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if n.IP != "10.0.0.1" || n.Uptime != model.DefaultUptime || n.SelfCheck {
		t.Errorf("unexpected defaults: %+v", n)
	}

	n.Heartbeat = time.Now().Unix()
	n.SelfCheck = true
	n.Uptime = "2d 5h"
	n.UserCount = 7
	n.Throughput = 123456
	n.CPU = 42.5
	if err := s.UpdateNode(n); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}

	got, err := s.GetNode("relay-1")
	if err != nil {
		t.Fatalf("GetNode after update: %v", err)
	}
	if *got != *n {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, n)
	}
}

func TestAddNodeDuplicate(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddNode("relay-1", "10.0.0.1"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	err := s.AddNode("relay-1", "10.0.0.2")
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate node name: got %v, want ErrDuplicate", err)
	}
}

func TestGetNodeNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetNode("ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGetAllNodes(t *testing.T) {
	s := newTestStore(t)

	for _, n := range []struct{ name, ip string }{
		{"relay-1", "10.0.0.1"},
		{"relay-2", "10.0.0.2"},
	} {
		if err := s.AddNode(n.name, n.ip); err != nil {
			t.Fatalf("AddNode %s: %v", n.name, err)
		}
	}

	nodes, err := s.GetAllNodes()
	if err != nil {
		t.Fatalf("GetAllNodes: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	s := newTestStore(t)

	k := &model.APIKey{Key: "tok-1", Name: "relay-1", Status: model.StatusNew}
	if err := s.AddAPIKey(k); err != nil {
		t.Fatalf("AddAPIKey: %v", err)
	}

	got, err := s.GetAPIKey("tok-1")
	if err != nil {
		t.Fatalf("GetAPIKey: %v", err)
	}
	if *got != *k {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, k)
	}

	got.Status = model.StatusRevoked
	if err := s.UpdateAPIKey(got); err != nil {
		t.Fatalf("UpdateAPIKey: %v", err)
	}
	again, err := s.GetAPIKey("tok-1")
	if err != nil {
		t.Fatalf("GetAPIKey after update: %v", err)
	}
	if again.Status != model.StatusRevoked {
		t.Errorf("status = %q, want revoked", again.Status)
	}

	if err := s.AddAPIKey(k); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate token: got %v, want ErrDuplicate", err)
	}
}

func TestInviteKeyLifecycle(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddInviteKey("inv-1"); err != nil {
		t.Fatalf("AddInviteKey: %v", err)
	}

	valid, err := s.InviteKeyValid("inv-1")
	if err != nil || !valid {
		t.Fatalf("fresh invite valid = %v, %v; want true, nil", valid, err)
	}

	consumed, err := s.ConsumeInviteKey("inv-1")
	if err != nil || !consumed {
		t.Fatalf("first consume = %v, %v; want true, nil", consumed, err)
	}

	// Second consume of the same key must lose the guarded update.
	consumed, err = s.ConsumeInviteKey("inv-1")
	if err != nil {
		t.Fatalf("second consume errored: %v", err)
	}
	if consumed {
		t.Error("invite key consumed twice")
	}

	valid, err = s.InviteKeyValid("inv-1")
	if err != nil || valid {
		t.Errorf("spent invite valid = %v, %v; want false, nil", valid, err)
	}

	// Unknown keys are not valid and cannot be consumed, but neither is an error.
	valid, err = s.InviteKeyValid("ghost")
	if err != nil || valid {
		t.Errorf("unknown invite valid = %v, %v; want false, nil", valid, err)
	}
	consumed, err = s.ConsumeInviteKey("ghost")
	if err != nil || consumed {
		t.Errorf("unknown invite consumed = %v, %v; want false, nil", consumed, err)
	}
}

func TestAddUserWithInvite(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddInviteKey("inv-1"); err != nil {
		t.Fatalf("AddInviteKey: %v", err)
	}

	u := &model.User{Username: "alice", HashedPassword: "x", Email: "alice@example.is"}
	if err := s.AddUser(u, "inv-1"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	valid, err := s.InviteKeyValid("inv-1")
	if err != nil || valid {
		t.Errorf("invite should be spent after registration, valid = %v, %v", valid, err)
	}

	// A spent invite cannot admit a second user, and the failed insert must
	// not leave a row behind.
	err = s.AddUser(&model.User{Username: "bob", HashedPassword: "x"}, "inv-1")
	if !errors.Is(err, ErrInviteSpent) {
		t.Fatalf("got %v, want ErrInviteSpent", err)
	}
	if _, err := s.GetUser("bob"); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob should not exist after failed registration, got %v", err)
	}
}

func TestAddUserDuplicateKeepsInvite(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddUser(&model.User{Username: "alice", HashedPassword: "x"}, ""); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := s.AddInviteKey("inv-1"); err != nil {
		t.Fatalf("AddInviteKey: %v", err)
	}

	err := s.AddUser(&model.User{Username: "alice", HashedPassword: "y"}, "inv-1")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}

	// The rolled-back transaction must not burn the invite.
	valid, err := s.InviteKeyValid("inv-1")
	if err != nil || !valid {
		t.Errorf("invite should survive a failed registration, valid = %v, %v", valid, err)
	}
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)

	u := &model.User{
		Username:       "alice",
		HashedPassword: "hash",
		Email:          "alice@example.is",
		DownloadLeft:   1 << 30,
		CreditISK:      2500,
		SubActive:      false,
	}
	if err := s.AddUser(u, ""); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	got, err := s.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if *got != *u {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, u)
	}

	got.Email = "new@example.is"
	got.SubActive = true
	if err := s.UpdateUser(got); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	again, err := s.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser after update: %v", err)
	}
	if *again != *got {
		t.Errorf("update mismatch: got %+v, want %+v", again, got)
	}
}

func TestDebitForSubscription(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddUser(&model.User{Username: "rich", HashedPassword: "x", CreditISK: 2500}, ""); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := s.AddUser(&model.User{Username: "poor", HashedPassword: "x", CreditISK: 100}, ""); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	ok, err := s.DebitForSubscription("rich", 2000)
	if err != nil || !ok {
		t.Fatalf("debit rich = %v, %v; want true, nil", ok, err)
	}
	u, err := s.GetUser("rich")
	if err != nil {
		t.Fatalf("GetUser rich: %v", err)
	}
	if u.CreditISK != 500 || !u.SubActive {
		t.Errorf("after debit: credit = %d, sub = %v; want 500, true", u.CreditISK, u.SubActive)
	}

	ok, err = s.DebitForSubscription("poor", 2000)
	if err != nil {
		t.Fatalf("debit poor errored: %v", err)
	}
	if ok {
		t.Error("debit succeeded on insufficient balance")
	}
	u, err = s.GetUser("poor")
	if err != nil {
		t.Fatalf("GetUser poor: %v", err)
	}
	if u.CreditISK != 100 || u.SubActive {
		t.Errorf("failed debit touched the row: %+v", u)
	}
}

func TestActivateSubscription(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddUser(&model.User{Username: "alice", HashedPassword: "x", CreditISK: 42}, ""); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := s.ActivateSubscription("alice"); err != nil {
		t.Fatalf("ActivateSubscription: %v", err)
	}
	u, err := s.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if !u.SubActive || u.CreditISK != 42 {
		t.Errorf("activation must not touch the balance: %+v", u)
	}

	if err := s.ActivateSubscription("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestAddDepositCreditsGross(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddUser(&model.User{Username: "alice", HashedPassword: "x", CreditISK: 100}, ""); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	d := &model.Deposit{
		Invoice:  "INV-1",
		Date:     time.Now().UTC().Truncate(time.Second),
		Username: "alice",
		Amount:   2000,
		Method:   "card",
		VATRate:  25.5,
		Fees:     20,
	}
	if err := s.AddDeposit(d); err != nil {
		t.Fatalf("AddDeposit: %v", err)
	}
	if d.DepositID == 0 {
		t.Fatal("deposit id not assigned")
	}

	// The balance grows by the gross amount; VAT and fees are bookkeeping only.
	u, err := s.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u.CreditISK != 2100 {
		t.Errorf("credit = %d, want 2100", u.CreditISK)
	}

	got, err := s.GetDeposit(d.DepositID)
	if err != nil {
		t.Fatalf("GetDeposit: %v", err)
	}
	if got.Username != "alice" || got.Amount != 2000 || got.VATRate != 25.5 || got.Fees != 20 || got.Invoice != "INV-1" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Date.Equal(d.Date) {
		t.Errorf("date = %v, want %v", got.Date, d.Date)
	}
}

func TestDepositIDsIncrease(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddUser(&model.User{Username: "alice", HashedPassword: "x"}, ""); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	var last int64
	for i := 0; i < 5; i++ {
		d := &model.Deposit{Date: time.Now().UTC(), Username: "alice", Amount: 100}
		if err := s.AddDeposit(d); err != nil {
			t.Fatalf("AddDeposit #%d: %v", i, err)
		}
		if d.DepositID <= last {
			t.Fatalf("deposit id %d not greater than previous %d", d.DepositID, last)
		}
		last = d.DepositID
	}
}

func TestAddDepositUnknownUser(t *testing.T) {
	s := newTestStore(t)

	d := &model.Deposit{Date: time.Now().UTC(), Username: "ghost", Amount: 100}
	if err := s.AddDeposit(d); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	// The rollback must not leave a deposit row behind.
	if d.DepositID != 0 {
		if _, err := s.GetDeposit(d.DepositID); !errors.Is(err, ErrNotFound) {
			t.Errorf("orphan deposit row survived rollback: %v", err)
		}
	}
}

func TestMapDBError(t *testing.T) {
	cases := []struct {
		in   error
		want error
	}{
		{errors.New("UNIQUE constraint failed: nodes.name"), ErrDuplicate},
		{errors.New("Error 1062: Duplicate entry"), ErrDuplicate},
		{errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"), ErrDuplicate},
		{errors.New("disk I/O error"), nil},
	}
	for _, c := range cases {
		got := MapDBError(c.in)
		if c.want == nil {
			if !errors.Is(got, c.in) && got.Error() != c.in.Error() {
				t.Errorf("MapDBError(%v) = %v, want passthrough", c.in, got)
			}
			continue
		}
		if !errors.Is(got, c.want) {
			t.Errorf("MapDBError(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
