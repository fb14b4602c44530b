// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for the Vidar admin tool using
// the Cobra library. It defines the root command, its persistent flags, and
// the database bootstrap shared by every subcommand.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vidar-vpn/vidar/buildvars"
	"github.com/vidar-vpn/vidar/internal/config"
	"github.com/vidar-vpn/vidar/internal/core"
	"github.com/vidar-vpn/vidar/internal/db"
	"github.com/vidar-vpn/vidar/internal/logging"
)

var cfgFile string

// Shared state set up by the root PersistentPreRunE for all subcommands.
var (
	cfg   config.Config
	store db.Store
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// The error is already printed by Cobra on failure.
		os.Exit(1)
	}
}

// newRootCmd creates and configures a new root cobra command. Tests create
// fresh instances through this function for isolated runs.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vidar",
		Short:   "Vidar is a self-hosted VPN credential and account service.",
		Version: buildvars.VersionOrDefault("dev"),
		Long: `Vidar manages the moving parts of a small VPN operation:
relay nodes and their health scores, API keys and invite keys,
user accounts with a prepaid balance, and the deposits that fund them.
The database is the source of truth; this tool administers it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cmd.Root(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logging.SetLevel(cfg.Log.Level)

			store, err = db.New(cfg.Database.Type, cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			return nil
		},
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newNodeCmd())
	cmd.AddCommand(newAPIKeyCmd())
	cmd.AddCommand(newInviteCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newDepositCmd())
	cmd.AddCommand(newSubCmd())
	cmd.AddCommand(newMaintainCmd())

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the user or system vidar.yaml)")
	cmd.PersistentFlags().String("db-type", "sqlite", `database type ("sqlite", "postgres", "mysql")`)
	cmd.PersistentFlags().String("db-dsn", "./vidar.db", "database connection string (DSN)")
	cmd.PersistentFlags().Int64("sub-price", 2000, "subscription price in ISK")
	cmd.PersistentFlags().String("log-level", "info", `log level ("debug", "info", "warn", "error")`)

	return cmd
}

// components bundles the domain layer over the shared store.
func components() (*core.Credentials, *core.Registry, *core.Ledger, *core.Deposits) {
	return core.NewCredentials(store),
		core.NewRegistry(store),
		core.NewLedger(store, cfg.Subscription.PriceISK),
		core.NewDeposits(store)
}
