// Package solve implements the "solve" CLI command: read a scheduling
// request as JSON, run it through the engine, print the response, and
// record the attempt in the audit trail.
package solve

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilgorjn/patient-scheduling/adapter/cli"
	"github.com/kilgorjn/patient-scheduling/internal/solver/audit"
	"github.com/kilgorjn/patient-scheduling/internal/solver/cache"
	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
)

var (
	requestFile string
	pretty      bool
)

// Cmd is the "solve" command.
var Cmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a patient visit schedule",
	Long: `Reads a solve request as JSON (from --file, or stdin when --file is
omitted), runs it through the scheduling engine, and prints the resulting
schedule as JSON.

Examples:
  scheduler solve --file request.json
  cat request.json | scheduler solve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Container == nil {
			return fmt.Errorf("solve requires a wired container; start with a database configured")
		}

		raw, err := readRequest()
		if err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}

		var req domain.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("invalid request JSON: %w", err)
		}

		container := app.Container
		resp := container.Engine.SolveCached(cmd.Context(), &req, container.ResultCache)

		fingerprint := cache.Fingerprint(&req)
		run := audit.NewRun(fingerprint, resp)
		if err := container.RecordRun(cmd.Context(), run); err != nil {
			container.Logger.Warn("failed to record solve run", "error", err)
		}

		encoder := json.NewEncoder(os.Stdout)
		if pretty {
			encoder.SetIndent("", "  ")
		}
		return encoder.Encode(resp)
	},
}

func init() {
	Cmd.Flags().StringVarP(&requestFile, "file", "f", "", "path to the request JSON file (default: stdin)")
	Cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty-print the response JSON")
}

func readRequest() ([]byte, error) {
	if requestFile != "" {
		return os.ReadFile(requestFile)
	}
	return io.ReadAll(os.Stdin)
}
