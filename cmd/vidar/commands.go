// Copyright (c) 2025 Vidar Authors
// Vidar - VPN credential and ledger service
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vidar-vpn/vidar/internal/config"
	"github.com/vidar-vpn/vidar/internal/core"
	"github.com/vidar-vpn/vidar/internal/db"
	"github.com/vidar-vpn/vidar/internal/model"
	"github.com/vidar-vpn/vidar/internal/security"
)

// newInitCmd writes the active configuration to the standard location so it
// becomes discoverable and editable. The database is already migrated by the
// root pre-run at this point.
func newInitCmd() *cobra.Command {
	var system bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the database and write a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteConfigFile(&cfg, system); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			fmt.Println("Database migrated and configuration written.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&system, "system", false, "write the system-wide config instead of the user config")
	return cmd
}

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage relay nodes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <ip>",
		Short: "Register a new relay node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, registry, _, _ := components()
			n, err := registry.Register(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Registered node %s\n", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all nodes with their fitness scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, registry, _, _ := components()
			nodes, err := registry.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tIP\tUPTIME\tUSERS\tCPU%\tSCORE\tHEALTHY")
			for i := range nodes {
				n := &nodes[i]
				score := n.Score()
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1f\t%.1f\t%v\n",
					n.Name, n.IP, n.Uptime, n.UserCount, n.CPU, score, score >= model.HealthyScore)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "auth <name> <api-key>",
		Short: "Check whether an API key authenticates a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, registry, _, _ := components()
			if err := registry.Auth(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Key authenticates node %s.\n", args[0])
			return nil
		},
	})

	return cmd
}

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}

	var status string
	issue := &cobra.Command{
		Use:   "issue <owner>",
		Short: "Issue a new API key for an owner (node name or username)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, _, _, _ := components()
			k, err := creds.NewAPIKey(args[0], model.KeyStatus(status))
			if err != nil {
				return err
			}
			fmt.Printf("Issued key for %s (status %s):\n%s\n", k.Name, k.Status, k.Key)
			return nil
		},
	}
	issue.Flags().StringVar(&status, "status", "", `initial status ("new", "good"); defaults to good`)
	cmd.AddCommand(issue)

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <api-key>",
		Short: "Revoke an API key so it never authenticates again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, _, _, _ := components()
			k, err := store.GetAPIKey(args[0])
			if err != nil {
				return err
			}
			k.Status = model.StatusRevoked
			if err := creds.SaveAPIKey(k); err != nil {
				return err
			}
			fmt.Printf("Revoked key of %s.\n", k.Name)
			return nil
		},
	})

	return cmd
}

func newInviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Manage invite keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Generate a single-use invite key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, _, _, _ := components()
			inv, err := creds.NewInviteKey()
			if err != nil {
				return err
			}
			fmt.Println(inv.Key)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check <invite-key>",
		Short: "Check whether an invite key is still usable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, _, _, _ := components()
			inv, err := creds.InviteKey(args[0])
			if err != nil {
				return err
			}
			if inv.Valid {
				fmt.Println("Invite key is valid.")
			} else {
				fmt.Println("Invite key is unknown or already used.")
			}
			return nil
		},
	})

	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var email, inviteKey, password string
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Register a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				password, err = promptLine("Password: ")
				if err != nil {
					return err
				}
			}
			_, _, ledger, _ := components()
			u, err := ledger.Register(args[0], security.FromString(password), inviteKey, email)
			if err != nil {
				return err
			}
			fmt.Printf("Registered user %s.\n", u.Username)
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "contact email address")
	add.Flags().StringVar(&inviteKey, "invite", "", "invite key to consume")
	add.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <username>",
		Short: "Show a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, ledger, _ := components()
			u, err := ledger.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Username: %s\nEmail: %s\nCredit: %d ISK\nDownload left: %d bytes\nSubscription: %v\n",
				u.Username, u.Email, u.CreditISK, u.DownloadLeft, u.SubActive)
			return nil
		},
	})

	return cmd
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Record and inspect deposits",
	}

	var invoice, method string
	var vatRate float64
	var fees int64
	add := &cobra.Command{
		Use:   "add <username> <amount>",
		Short: "Record a deposit and credit the user's balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("amount must be a whole number of ISK: %w", err)
			}
			var opts []core.DepositOption
			if method != "" {
				opts = append(opts, core.WithMethod(method))
			}
			if vatRate != 0 {
				opts = append(opts, core.WithVATRate(vatRate))
			}
			if fees != 0 {
				opts = append(opts, core.WithFees(fees))
			}
			_, _, _, deposits := components()
			d, err := deposits.New(args[0], amount, invoice, opts...)
			if err != nil {
				return err
			}
			fmt.Printf("Deposit %d recorded: %d ISK for %s (income %.2f after VAT and fees).\n",
				d.DepositID, d.Amount, d.Username, d.Income())
			return nil
		},
	}
	add.Flags().StringVar(&invoice, "invoice", "", "invoice reference")
	add.Flags().StringVar(&method, "method", "", "payment method (card, wire, cash)")
	add.Flags().Float64Var(&vatRate, "vat", 0, "VAT percentage applied to the gross amount")
	add.Flags().Int64Var(&fees, "fees", 0, "flat processing fee in ISK")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a recorded deposit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("id must be a number: %w", err)
			}
			_, _, _, deposits := components()
			d, err := deposits.Get(id)
			if err != nil {
				return err
			}
			fmt.Printf("Deposit %d: %d ISK from %s on %s via %q\nInvoice: %s\nVAT: %.2f (%.1f%%)\nFees: %d\nIncome: %.2f\n",
				d.DepositID, d.Amount, d.Username, d.Date.Format("2006-01-02"), d.Method,
				d.Invoice, d.VATAmount(), d.VATRate, d.Fees, d.Income())
			return nil
		},
	})

	return cmd
}

func newSubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sub",
		Short: "Manage subscriptions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "buy <username>",
		Short: "Buy a subscription from the user's prepaid balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, ledger, _ := components()
			if err := ledger.BuySubscription(args[0]); err != nil {
				return err
			}
			fmt.Printf("Subscription active for %s.\n", args[0])
			return nil
		},
	})

	return cmd
}

func newMaintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Run database maintenance (vacuum, optimize, integrity check)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.RunDBMaintenance(cfg.Database.Type, cfg.Database.DSN); err != nil {
				return err
			}
			fmt.Println("Maintenance completed.")
			return nil
		},
	}
}

// promptLine reads one line from stdin after printing the prompt.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
