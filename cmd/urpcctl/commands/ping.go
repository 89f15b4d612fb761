package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/urpc/internal/client"
	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/wire"
)

var (
	pingTimeout     time.Duration
	pingMaxDataSize int
)

var pingCmd = &cobra.Command{
	Use:   "ping <uri>",
	Short: "Send a GET_CAP request and print the round-trip latency",
	Long: `ping performs the uRPC capability probe (PROC_GET_CAP): a pre-auth
request every server answers without a session, used here purely to
check reachability and measure round-trip time.

Example:
  urpcctl ping tcp://127.0.0.1:9000/`,
	Args: cobra.ExactArgs(1),
	RunE: runPing,
}

func init() {
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 2*time.Second, "Exchange timeout")
	pingCmd.Flags().IntVar(&pingMaxDataSize, "max-data-size", 4096, "Parameter payload buffer size")
}

func runPing(cmd *cobra.Command, args []string) error {
	uri := args[0]

	cli, err := client.Dial(uri, pingMaxDataSize, pingTimeout)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", uri, err)
	}
	defer cli.Close()

	buf, err := cli.Lock()
	if err != nil {
		return fmt.Errorf("failed to lock client: %w", err)
	}
	defer cli.Unlock()

	start := time.Now()
	status := cli.Exec(wire.ProcGetCap)
	elapsed := time.Since(start)

	if status != wire.StatusOK {
		return fmt.Errorf("GET_CAP failed: %s", status)
	}

	cap, _ := buf.GetU32(databuf.Input, wire.ParamCap)

	fmt.Printf("%s: OK, cap=0x%08x, rtt=%s\n", uri, cap, elapsed)
	return nil
}
