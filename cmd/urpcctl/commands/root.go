// Package commands implements urpcctl, a small client-side exerciser
// for a running uRPC server: a GET_CAP pinger and a generic procedure
// caller, grounded on cmd/dfsctl/commands/root.go's cobra layout.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "urpcctl",
	Short: "uRPC client exerciser",
	Long: `urpcctl is a small command-line client for a uRPC server: it can probe
a server's capabilities (ping) or drive an arbitrary procedure call
against it, packing parameters from the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(callCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("urpcctl %s (commit %s, built %s)\n", Version, Commit, Date)
		return nil
	},
}
