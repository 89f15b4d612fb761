package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var statusPidFile string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a urpcd process recorded in a PID file is running",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file written by 'urpcd start'")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusPidFile == "" {
		return fmt.Errorf("--pid-file is required (urpcd start must have been given one)")
	}

	data, err := os.ReadFile(statusPidFile)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("not running (no PID file)")
			return nil
		}
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("invalid PID in file: %s", string(data))
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		fmt.Printf("not running (pid %d not found)\n", pid)
		return nil
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		fmt.Printf("not running (stale PID file for pid %d)\n", pid)
		return nil
	}

	fmt.Printf("running (pid %d)\n", pid)
	return nil
}
