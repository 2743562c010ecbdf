package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goVerify/signing"
	"github.com/spf13/cobra"
)

var (
	flagMethod    string
	flagPath      string
	flagParams    string
	flagTimestamp int64
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a request with the shared signing secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Secrets.Signing) == 0 {
			return fmt.Errorf("signing secret is not configured")
		}
		signer := signing.NewSigner(cfg.Secrets.Signing,
			signing.WithWindow(cfg.Request.Window),
			signing.WithLabel(cfg.Request.Label),
		)

		ts := flagTimestamp
		if ts == 0 {
			ts = time.Now().Unix()
		}
		req := signing.Request{
			Method:    strings.ToUpper(flagMethod),
			Path:      flagPath,
			Params:    flagParams,
			Timestamp: ts,
		}
		signer.SignRequest(&req)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "X-Timestamp: %d\n", req.Timestamp)
		fmt.Fprintf(out, "X-Signature: %s\n", req.Signature)
		return nil
	},
}

func init() {
	signCmd.Flags().StringVar(&flagMethod, "method", "GET", "HTTP method")
	signCmd.Flags().StringVar(&flagPath, "path", "/", "request path")
	signCmd.Flags().StringVar(&flagParams, "params", "", "raw query string or body")
	signCmd.Flags().Int64Var(&flagTimestamp, "timestamp", 0, "unix seconds; now when zero")
}
