package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/pkgreconcile/internal/audit"
	"github.com/breeze-rmm/pkgreconcile/internal/config"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the audit journal",
}

var journalVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Check the hash chain of an audit journal file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path = cfg.AuditPath
		}
		if path == "" {
			return errors.New("no audit journal configured; set audit_path or pass a path")
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		n, err := audit.Verify(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries verified\n", path, n)
		return nil
	},
}

func init() {
	journalCmd.AddCommand(journalVerifyCmd)
	rootCmd.AddCommand(journalCmd)
}
