package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goVerify/identity"
	"github.com/spf13/cobra"
)

var deriveCmd = &cobra.Command{
	Use:   "derive <email>",
	Short: "Print the account id derived from an email address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Secrets.Identity) == 0 {
			return fmt.Errorf("identity secret is not configured")
		}
		fmt.Fprintln(cmd.OutOrStdout(), identity.DeriveKeyed(cfg.Secrets.Identity, identity.Canonical(args[0])))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <email|account-id>",
	Short: "Show the lockout state of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		engine, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		st, err := engine.LockoutStatus(ctx, resolveAccount(engine.AccountID, args[0]))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "account:     %s\n", st.AccountID)
		fmt.Fprintf(out, "state:       %s\n", st.State)
		fmt.Fprintf(out, "failures:    %d\n", st.Failures)
		if !st.LockedAt.IsZero() {
			fmt.Fprintf(out, "locked at:   %s\n", st.LockedAt.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "retry after: %s\n", st.RetryAfter.Round(time.Second))
		}
		if !st.LastLogin.At.IsZero() {
			fmt.Fprintf(out, "last login:  %s from %s\n", st.LastLogin.At.Format("2006-01-02 15:04:05 MST"), st.LastLogin.IP)
		}
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <email|account-id>",
	Short: "Clear the lockout record of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		engine, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		id := resolveAccount(engine.AccountID, args[0])
		if err := engine.Unlock(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "unlocked %s\n", id)
		return nil
	},
}

// resolveAccount treats arguments containing @ as email addresses.
func resolveAccount(derive func(string) string, arg string) string {
	if strings.Contains(arg, "@") {
		return derive(arg)
	}
	return arg
}
