// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core implements the domain components of Vidar: the credential
// store, the node registry, the account ledger and the deposit processor.
// Each component is constructed over an explicit db.Store handle, so several
// stores can coexist in one process.
package core

import (
	"errors"
	"fmt"

	"github.com/vidar-vpn/vidar/internal/db"
	"github.com/vidar-vpn/vidar/internal/logging"
	"github.com/vidar-vpn/vidar/internal/model"
	"github.com/vidar-vpn/vidar/internal/token"
)

// Credentials manages API keys and invite keys. Authentication is a storage
// lookup plus a status predicate, not cryptographic verification: the tokens
// are opaque and unguessable, and the store's exact-match lookup does the rest.
type Credentials struct {
	store db.Store
}

// NewCredentials returns a credential store bound to the given store handle.
func NewCredentials(store db.Store) *Credentials {
	return &Credentials{store: store}
}

// NewAPIKey generates a random unique token and persists it for the given
// owner. An empty status defaults to StatusGood.
func (c *Credentials) NewAPIKey(name string, status model.KeyStatus) (*model.APIKey, error) {
	if name == "" {
		return nil, fmt.Errorf("api key owner name must not be empty: %w", ErrValidation)
	}
	if status == "" {
		status = model.StatusGood
	}
	if !status.Known() {
		return nil, fmt.Errorf("unknown api key status %q: %w", status, ErrValidation)
	}

	tok, err := token.NewHex()
	if err != nil {
		return nil, err
	}
	k := &model.APIKey{Key: tok, Name: name, Status: status}
	if err := c.store.AddAPIKey(k); err != nil {
		return nil, err
	}
	logging.Debugf("issued api key for %s (status=%s)", name, status)
	return k, nil
}

// AuthAPIKey authenticates a bearer token. It fails with ErrAuth when the
// token is unknown, its status is not good, or name is non-empty and does not
// match the stored owner. On success the full record is returned; the call
// has no side effects.
func (c *Credentials) AuthAPIKey(key, name string) (*model.APIKey, error) {
	k, err := c.store.GetAPIKey(key)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("api key: %w", ErrAuth)
		}
		return nil, err
	}
	if k.Status != model.StatusGood {
		return nil, fmt.Errorf("api key: %w", ErrAuth)
	}
	if name != "" && k.Name != name {
		return nil, fmt.Errorf("api key: %w", ErrAuth)
	}
	return k, nil
}

// SaveAPIKey persists in-place mutation of an existing key, typically a
// status transition.
func (c *Credentials) SaveAPIKey(k *model.APIKey) error {
	if !k.Status.Known() {
		return fmt.Errorf("unknown api key status %q: %w", k.Status, ErrValidation)
	}
	return c.store.UpdateAPIKey(k)
}

// NewInviteKey generates a random single-use registration token.
func (c *Credentials) NewInviteKey() (*model.InviteKey, error) {
	tok, err := token.NewHex()
	if err != nil {
		return nil, err
	}
	if err := c.store.AddInviteKey(tok); err != nil {
		return nil, err
	}
	logging.Debugf("issued invite key")
	return &model.InviteKey{Key: tok, Valid: true}, nil
}

// InviteKey returns a view of the given token string. An unknown or spent
// token is not an error; the view simply reports Valid=false and the error
// is deferred to UseInviteKey.
func (c *Credentials) InviteKey(key string) (*model.InviteKey, error) {
	valid, err := c.store.InviteKeyValid(key)
	if err != nil {
		return nil, err
	}
	return &model.InviteKey{Key: key, Valid: valid}, nil
}

// UseInviteKey consumes the token. It fails with ErrInvalidState unless the
// key exists and is unconsumed; afterward it is permanently unusable, across
// every view of the same token string.
func (c *Credentials) UseInviteKey(key string) error {
	consumed, err := c.store.ConsumeInviteKey(key)
	if err != nil {
		return err
	}
	if !consumed {
		return fmt.Errorf("invite key: %w", ErrInvalidState)
	}
	return nil
}
