package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the OAuth broker.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "che-server",
	Short: "OAuth broker for Eclipse Che workspaces",
	Long: `che-server brokers OAuth authentication between Che workspaces and
source-control providers (GitHub, GitLab, Bitbucket, and custom OAuth1/OAuth2
endpoints). It dispatches authentication requests to the configured provider,
handles the provider callback, and stores the resulting tokens per user.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "che-server version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
