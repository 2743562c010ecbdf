package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the effective security posture as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		engine, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		report := struct {
			Security any `json:"security"`
			Health   any `json:"health"`
		}{
			Security: engine.SecurityReport(),
			Health:   engine.Health(ctx),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}
