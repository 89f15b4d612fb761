package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var stopPidFile string

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running urpcd by PID file",
	Long: `Send SIGTERM to a urpcd process recorded in a PID file, letting it
drain in-flight requests before the worker pool exits.

Examples:
  urpcd stop --pid-file /var/run/urpcd.pid`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().StringVar(&stopPidFile, "pid-file", "", "Path to PID file written by 'urpcd start'")
}

func runStop(cmd *cobra.Command, args []string) error {
	if stopPidFile == "" {
		return fmt.Errorf("--pid-file is required (urpcd start must have been given one)")
	}

	data, err := os.ReadFile(stopPidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("PID file not found: %s\n\nIs the server running?", stopPidFile)
		}
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("invalid PID in file: %s", string(data))
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	fmt.Println("Shutdown signal sent. Server will stop gracefully.")
	return nil
}
