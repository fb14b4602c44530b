// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import "github.com/vidar-vpn/vidar/internal/model"

// The collaborators below are the seams to the systems this core does not
// own: key provisioning, installer packaging, invoicing and external payment
// rails. They run after the primary record has been committed and are best
// effort; a failure is logged by the caller and never unwinds committed
// state. The no-op implementations are the defaults and double as test stubs.

// CredentialIssuer provisions a new user's own API keys.
type CredentialIssuer interface {
	IssueKeys(username string) error
}

// InstallerBuilder produces the client installer artifact for a new user.
type InstallerBuilder interface {
	BuildInstaller(username string) error
}

// InvoiceService renders an invoice for a recorded deposit.
type InvoiceService interface {
	GenerateInvoice(d *model.Deposit) error
}

// SubscriptionFunder is the alternate payment rail consulted when a user's
// prepaid balance cannot cover a subscription. Fund reports whether the
// purchase was settled externally.
type SubscriptionFunder interface {
	Fund(username string, price int64) (bool, error)
}

// NopCredentialIssuer issues nothing.
type NopCredentialIssuer struct{}

func (NopCredentialIssuer) IssueKeys(string) error { return nil }

// NopInstallerBuilder builds nothing.
type NopInstallerBuilder struct{}

func (NopInstallerBuilder) BuildInstaller(string) error { return nil }

// NopInvoiceService generates nothing.
type NopInvoiceService struct{}

func (NopInvoiceService) GenerateInvoice(*model.Deposit) error { return nil }

// DecliningFunder declines every funding request.
type DecliningFunder struct{}

func (DecliningFunder) Fund(string, int64) (bool, error) { return false, nil }
