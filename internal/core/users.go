// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"errors"
	"fmt"

	"github.com/vidar-vpn/vidar/internal/db"
	"github.com/vidar-vpn/vidar/internal/logging"
	"github.com/vidar-vpn/vidar/internal/model"
	"github.com/vidar-vpn/vidar/internal/security"
)

// Ledger manages user accounts: registration, password verification, the
// prepaid credit balance and subscription purchase. The exported collaborator
// fields default to no-ops and may be replaced before use.
type Ledger struct {
	Issuer    CredentialIssuer
	Installer InstallerBuilder
	Funder    SubscriptionFunder

	store db.Store
	price int64 // subscription price in ISK
}

// NewLedger returns an account ledger bound to the given store handle,
// selling subscriptions at the given price.
func NewLedger(store db.Store, price int64) *Ledger {
	return &Ledger{
		Issuer:    NopCredentialIssuer{},
		Installer: NopInstallerBuilder{},
		Funder:    DecliningFunder{},
		store:     store,
		price:     price,
	}
}

// Register creates a user account. The password must be at least
// security.MinPasswordLength bytes. A non-empty inviteKey must name a valid,
// unconsumed invite key; it is consumed atomically with the insert, so a
// failed registration never burns an invite. After the account is committed,
// the user's own API keys and client installer are provisioned best effort
// through the injected collaborators.
func (l *Ledger) Register(username string, password security.Secret, inviteKey, email string) (*model.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username must not be empty: %w", ErrValidation)
	}
	if len(password) < security.MinPasswordLength {
		return nil, fmt.Errorf("password shorter than %d bytes: %w", security.MinPasswordLength, ErrValidation)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{Username: username, HashedPassword: hash, Email: email}
	if err := l.store.AddUser(u, inviteKey); err != nil {
		if errors.Is(err, db.ErrInviteSpent) {
			return nil, fmt.Errorf("registration for %q: %w", username, ErrInvalidState)
		}
		return nil, err
	}
	logging.Infof("registered user %s", username)

	// Provisioning runs after the account is committed; a failure here must
	// not unwind the registration.
	if err := l.Issuer.IssueKeys(username); err != nil {
		logging.Warnf("issuing keys for %s failed: %v", username, err)
	}
	if err := l.Installer.BuildInstaller(username); err != nil {
		logging.Warnf("building installer for %s failed: %v", username, err)
	}
	return u, nil
}

// Get returns a user by username, or db.ErrNotFound.
func (l *Ledger) Get(username string) (*model.User, error) {
	return l.store.GetUser(username)
}

// Save persists mutations to the account's email, quota, balance and
// subscription flag.
func (l *Ledger) Save(u *model.User) error {
	return l.store.UpdateUser(u)
}

// BuySubscription activates a subscription for the user. If the prepaid
// balance covers the price, the debit and the activation happen as one
// atomic update. Otherwise the injected Funder is consulted; if it settles
// the purchase the subscription is activated without a debit, and if not the
// call fails with ErrNotEnoughFunds leaving the account untouched.
func (l *Ledger) BuySubscription(username string) error {
	if _, err := l.store.GetUser(username); err != nil {
		return err
	}

	debited, err := l.store.DebitForSubscription(username, l.price)
	if err != nil {
		return err
	}
	if debited {
		logging.Infof("user %s bought subscription for %d ISK", username, l.price)
		return nil
	}

	funded, err := l.Funder.Fund(username, l.price)
	if err != nil {
		logging.Warnf("alternate funding for %s failed: %v", username, err)
	}
	if funded {
		if err := l.store.ActivateSubscription(username); err != nil {
			return err
		}
		logging.Infof("user %s bought subscription via external rail", username)
		return nil
	}
	return fmt.Errorf("subscription costs %d ISK: %w", l.price, ErrNotEnoughFunds)
}
