package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// SimCmd runs the built cli against the simulated sensor as a smoke test.
func SimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run the built cli against the simulated sensor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(binaryPath); err != nil {
				return fmt.Errorf("%s not found, run dev build first: %w", binaryPath, err)
			}
			for _, sub := range [][]string{{"info"}, {"read", "--oneshot", "async"}, {"read", "--format", "yaml"}} {
				runArgs := append([]string{"--adapter", "sim"}, sub...)
				slog.Info("running", "args", runArgs)
				run := exec.CommandContext(cmd.Context(), binaryPath, runArgs...)
				run.Stdout = os.Stdout
				run.Stderr = os.Stderr
				if err := run.Run(); err != nil {
					return fmt.Errorf("spectral %v failed: %w", sub, err)
				}
			}
			return nil
		},
	}
	return cmd
}
