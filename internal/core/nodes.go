// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"fmt"
	"net/netip"

	"github.com/vidar-vpn/vidar/internal/db"
	"github.com/vidar-vpn/vidar/internal/logging"
	"github.com/vidar-vpn/vidar/internal/model"
)

// Registry manages relay nodes: registration, metric reports and
// authentication. Node credentials are plain API keys owned by the node
// name, so authentication delegates to the credential store.
type Registry struct {
	store db.Store
	creds *Credentials
}

// NewRegistry returns a node registry bound to the given store handle.
func NewRegistry(store db.Store) *Registry {
	return &Registry{store: store, creds: NewCredentials(store)}
}

// Register creates a node with all metrics at their defaults. The name must
// be unique and the ip must parse as an IPv4 or IPv6 literal.
func (r *Registry) Register(name, ip string) (*model.Node, error) {
	if name == "" {
		return nil, fmt.Errorf("node name must not be empty: %w", ErrValidation)
	}
	if _, err := netip.ParseAddr(ip); err != nil {
		return nil, fmt.Errorf("node ip %q: %w", ip, ErrValidation)
	}
	if err := r.store.AddNode(name, ip); err != nil {
		return nil, err
	}
	logging.Infof("registered node %s (%s)", name, ip)
	return &model.Node{Name: name, IP: ip, Uptime: model.DefaultUptime}, nil
}

// Get returns a node by name, or db.ErrNotFound.
func (r *Registry) Get(name string) (*model.Node, error) {
	return r.store.GetNode(name)
}

// Save persists the node's mutated metric fields.
func (r *Registry) Save(n *model.Node) error {
	return r.store.UpdateNode(n)
}

// List returns all registered nodes.
func (r *Registry) List() ([]model.Node, error) {
	return r.store.GetAllNodes()
}

// Auth authenticates a node's bearer token against its name. It fails with
// ErrAuth under the same conditions as Credentials.AuthAPIKey.
func (r *Registry) Auth(name, key string) error {
	_, err := r.creds.AuthAPIKey(key, name)
	return err
}
