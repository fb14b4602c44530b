// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"fmt"
	"time"

	"github.com/vidar-vpn/vidar/internal/db"
	"github.com/vidar-vpn/vidar/internal/logging"
	"github.com/vidar-vpn/vidar/internal/model"
)

// Deposits records payment events and applies their ledger effects. The
// Invoices collaborator defaults to a no-op and may be replaced before use.
type Deposits struct {
	Invoices InvoiceService

	store db.Store
}

// NewDeposits returns a deposit processor bound to the given store handle.
func NewDeposits(store db.Store) *Deposits {
	return &Deposits{Invoices: NopInvoiceService{}, store: store}
}

// DepositOption adjusts the optional accounting fields of a new deposit.
type DepositOption func(*model.Deposit)

// WithMethod records the payment channel (card, wire, cash, ...).
func WithMethod(method string) DepositOption {
	return func(d *model.Deposit) { d.Method = method }
}

// WithVATRate sets the VAT percentage applied to the gross amount.
func WithVATRate(rate float64) DepositOption {
	return func(d *model.Deposit) { d.VATRate = rate }
}

// WithFees sets the flat processing fee deducted from the recorded income.
func WithFees(fees int64) DepositOption {
	return func(d *model.Deposit) { d.Fees = fees }
}

// New records a payment of the gross amount for an existing user. The
// deposit row and the balance credit are committed in one transaction; the
// user's balance grows by the full gross amount, while VAT and fees only
// shape the recorded income figure. The returned record carries its
// storage-assigned, strictly increasing id. Invoice rendering runs best
// effort after commit.
func (p *Deposits) New(username string, amount int64, invoice string, opts ...DepositOption) (*model.Deposit, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive, got %d: %w", amount, ErrValidation)
	}
	if _, err := p.store.GetUser(username); err != nil {
		return nil, fmt.Errorf("deposit for %q: %w", username, err)
	}

	d := &model.Deposit{
		Invoice:  invoice,
		Date:     time.Now().UTC(),
		Username: username,
		Amount:   amount,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := p.store.AddDeposit(d); err != nil {
		return nil, err
	}
	logging.Infof("deposit %d: %d ISK for %s via %q", d.DepositID, amount, username, d.Method)

	if err := p.Invoices.GenerateInvoice(d); err != nil {
		logging.Warnf("invoice generation for deposit %d failed: %v", d.DepositID, err)
	}
	return d, nil
}

// Get returns a deposit by id, or db.ErrNotFound. Deposits are immutable;
// there is no save path.
func (p *Deposits) Get(id int64) (*model.Deposit, error) {
	return p.store.GetDeposit(id)
}
