package main

import (
	"fmt"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/spf13/cobra"
)

var flagStrict bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate the configuration and list lint warnings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		out := cmd.OutOrStdout()
		ws := cfg.Lint()
		for _, w := range ws {
			fmt.Fprintf(out, "%-5s %-28s %s\n", w.Severity, w.Code, w.Message)
		}
		if len(ws) == 0 {
			fmt.Fprintln(out, "config ok")
		}

		threshold := goVerify.LintHigh
		if flagStrict {
			threshold = goVerify.LintWarn
		}
		return ws.AsError(threshold)
	},
}

func init() {
	configCmd.Flags().BoolVar(&flagStrict, "strict", false, "fail on warn-level lint findings too")
}
