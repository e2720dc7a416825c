package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version      = "0.1.0"
	cfgFile      string
	snapshotPath string
	metricsFile  string
)

var rootCmd = &cobra.Command{
	Use:   "pkgreconcile",
	Short: "Reconcile the software selection of an installation",
	Long: `pkgreconcile classifies product changes of a pending upgrade and selects
the default software patterns through the resolver.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "pkgreconcile v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/pkgreconcile/pkgreconcile.yaml)")
	rootCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", "", "resolver snapshot file (overrides config)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the command (overrides config)")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
