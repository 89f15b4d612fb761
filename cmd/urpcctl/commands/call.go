package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/urpc/internal/client"
	"github.com/marmos91/urpc/internal/databuf"
	"github.com/marmos91/urpc/internal/wire"
)

var (
	callTimeout     time.Duration
	callMaxDataSize int
	callParams      []string
	callLogin       bool
)

var callCmd = &cobra.Command{
	Use:   "call <uri> <proc-id>",
	Short: "Invoke a procedure and print its output parameters",
	Long: `call drives one procedure invocation against a uRPC server: optionally
logs in, packs --param id=value pairs (both hex or decimal uint32) as
output parameters, executes proc-id, and prints the reply status and,
when it is OK, the uint32 value the reply carries under each --param id.

proc-id is a uint32, in hex (0x...) or decimal.

Example:
  urpcctl call --login --param 0x20010001=21 tcp://127.0.0.1:9000/ 0x20010000`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 2*time.Second, "Exchange timeout")
	callCmd.Flags().IntVar(&callMaxDataSize, "max-data-size", 4096, "Parameter payload buffer size")
	callCmd.Flags().StringArrayVar(&callParams, "param", nil, "id=value uint32 parameter, may be repeated")
	callCmd.Flags().BoolVar(&callLogin, "login", false, "Perform LOGIN before the call and LOGOUT after")
}

func runCall(cmd *cobra.Command, args []string) error {
	uri := args[0]
	procID, err := parseUint32(args[1])
	if err != nil {
		return fmt.Errorf("invalid proc-id %q: %w", args[1], err)
	}

	cli, err := client.Dial(uri, callMaxDataSize, callTimeout)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", uri, err)
	}
	defer cli.Close()

	if callLogin {
		if _, err := cli.Lock(); err != nil {
			return err
		}
		status := cli.Exec(wire.ProcLogin)
		cli.Unlock()
		if status != wire.StatusOK {
			return fmt.Errorf("LOGIN failed: %s", status)
		}
		defer func() {
			if _, err := cli.Lock(); err == nil {
				cli.Exec(wire.ProcLogout)
				cli.Unlock()
			}
		}()
	}

	buf, err := cli.Lock()
	if err != nil {
		return err
	}
	defer cli.Unlock()

	for _, p := range callParams {
		id, value, err := parseParam(p)
		if err != nil {
			return err
		}
		if err := buf.SetU32(databuf.Output, id, value); err != nil {
			return fmt.Errorf("failed to pack param %s: %w", p, err)
		}
	}

	status := cli.Exec(procID)
	fmt.Printf("status: %s\n", status)
	if status != wire.StatusOK {
		return nil
	}

	for _, p := range callParams {
		id, _, _ := parseParam(p)
		if v, ok := buf.GetU32(databuf.Input, id); ok {
			fmt.Printf("  0x%08x = %d\n", id, v)
		}
	}
	return nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func parseParam(s string) (id uint32, value uint32, err error) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("param %q must be id=value", s)
	}
	id, err = parseUint32(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid param id %q: %w", parts[0], err)
	}
	value, err = parseUint32(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid param value %q: %w", parts[1], err)
	}
	return id, value, nil
}
