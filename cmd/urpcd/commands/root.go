// Package commands implements the urpcd CLI: start/stop/status/init for
// a uRPC server daemon bound to one transport.
//
// Grounded on cmd/dittofs/commands/root.go's cobra root command
// structure, generalized from DittoFS's NFS/SMB subcommand tree down to
// the handful of lifecycle commands a bare uRPC daemon needs.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "urpcd",
	Short: "uRPC server daemon",
	Long: `urpcd runs a uRPC server: a worker-thread dispatch loop bound to one
transport (TCP, UDP, or shared memory), serving session and procedure
requests against the uRPC wire protocol.

Use "urpcd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, exposed for tests.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/urpc/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the --config flag's value.
func GetConfigFile() string {
	return cfgFile
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("urpcd %s (commit %s, built %s)\n", Version, Commit, Date)
		return nil
	},
}
