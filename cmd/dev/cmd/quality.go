package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// simulatorPackages hold the tests that drive the simulated AS726x end to end.
var simulatorPackages = []string{"./spectrum/...", "./cmd/spectral/..."}

func TestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run unit tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Test(); err != nil {
				return fmt.Errorf("unit tests failed: %w", err)
			}
			return nil
		},
	}
}

func LintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Run linters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Lint(); err != nil {
				return fmt.Errorf("lint failed: %w", err)
			}
			return nil
		},
	}
}

// IntegrationTestCmd runs the protocol and cli tests against the simulator
// with the race detector, then the devtool integration suite when --hardware
// is given.
func IntegrationTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integration-test",
		Short: "Run simulator driven protocol and cli tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := append([]string{"test", "-race", "-count=1"}, simulatorPackages...)
			if run, _ := cmd.Flags().GetString("run"); run != "" {
				goArgs = append(goArgs, "-run", run)
			}
			slog.Info("running simulator tests", "args", goArgs)
			goTest := exec.CommandContext(cmd.Context(), "go", goArgs...)
			goTest.Stdout = os.Stdout
			goTest.Stderr = os.Stderr
			if err := goTest.Run(); err != nil {
				return fmt.Errorf("simulator tests failed: %w", err)
			}
			hardware, err := cmd.Flags().GetBool("hardware")
			if err != nil {
				return fmt.Errorf("could not get hardware flag: %w", err)
			}
			if !hardware {
				return nil
			}
			slog.Info("running hardware integration tests")
			if err := test.Integ(); err != nil {
				return fmt.Errorf("hardware integration tests failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("run", "", "only run tests matching this pattern")
	cmd.Flags().Bool("hardware", false, "also run the integration suite against a connected sensor")
	return cmd
}
