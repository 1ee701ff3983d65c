package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// changelogScopes maps conventional commit scopes to the paths they cover.
var changelogScopes = map[string][]string{
	"spectrum": {"spectrum", "bus.go"},
	"adapter":  {"adapter"},
	"i2c":      {"i2c"},
	"cli":      {"cmd/spectral", "pkg/config"},
}

func scopeNames() string {
	names := make([]string, 0, len(changelogScopes))
	for name := range changelogScopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func ChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Generate or update CHANGELOG.md from git history",
		Long: fmt.Sprintf(`Generate CHANGELOG.md with git-chglog from conventional commits:
  <type>(<scope>): <description>

Scopes: %s. With --scope only commits touching that part of the tree are listed.

Requires git-chglog in PATH:
  go install github.com/git-chglog/git-chglog/cmd/git-chglog@latest

Examples:
  dev changelog --next v0.3.0
  dev changelog --scope adapter --output ADAPTER_CHANGES.md`, scopeNames()),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			nextVersion, _ := cmd.Flags().GetString("next")
			tag, _ := cmd.Flags().GetString("tag")
			scope, _ := cmd.Flags().GetString("scope")

			if _, err := exec.LookPath("git-chglog"); err != nil {
				return fmt.Errorf("git-chglog not installed: %w", err)
			}
			chglogArgs, err := changelogArgs(output, nextVersion, tag, scope)
			if err != nil {
				return err
			}
			slog.Info("running git-chglog", "args", chglogArgs)
			gitChglog := exec.CommandContext(cmd.Context(), "git-chglog", chglogArgs...)
			gitChglog.Stdout = os.Stdout
			gitChglog.Stderr = os.Stderr
			if err := gitChglog.Run(); err != nil {
				return fmt.Errorf("failed to generate changelog: %w", err)
			}
			slog.Info("changelog generated", "output", output, "scope", scope)
			return nil
		},
	}
	cmd.Flags().String("next", "", "next version tag (e.g. v0.3.0)")
	cmd.Flags().String("output", "CHANGELOG.md", "output file path")
	cmd.Flags().String("tag", "", "generate changelog for a specific tag")
	cmd.Flags().String("scope", "", "limit to one scope: "+scopeNames())
	return cmd
}

func changelogArgs(output, nextVersion, tag, scope string) ([]string, error) {
	if output == "" {
		output = "CHANGELOG.md"
	}
	args := []string{"--output", output}
	if nextVersion != "" {
		args = append(args, "--next-tag", nextVersion)
	}
	if scope != "" {
		paths, ok := changelogScopes[scope]
		if !ok {
			return nil, fmt.Errorf("unknown scope %q, expected one of %s", scope, scopeNames())
		}
		for _, p := range paths {
			args = append(args, "--path", p)
		}
	}
	if tag != "" {
		args = append(args, tag)
	}
	return args, nil
}
