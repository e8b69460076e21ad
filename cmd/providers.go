package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/netomi/che-server/internal/config"
	pkgstrings "github.com/netomi/che-server/pkg/strings"
)

// providersConfigPath specifies the configuration file path.
var providersConfigPath string

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the configured OAuth providers",
	Long: `Lists the OAuth providers from the configuration file, with their
protocol variant, endpoint, and default scopes.`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func runProviders(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(providersConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(cfg.Providers) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No OAuth providers configured")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"NAME", "PROTOCOL", "ENDPOINT", "SCOPES"})

	for _, p := range cfg.Providers {
		scopes := pkgstrings.TruncateCell(strings.Join(p.Scopes, " "), pkgstrings.DefaultCellMaxLen)
		t.AppendRow(table.Row{p.Name, p.Protocol, p.EndpointURL, scopes})
	}

	t.Render()
	return nil
}

func init() {
	rootCmd.AddCommand(providersCmd)

	providersCmd.Flags().StringVar(&providersConfigPath, "config", "", "Configuration file path")
}
