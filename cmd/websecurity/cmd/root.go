package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "websecurity",
	Short: "Identity and authorization demo server",
	Long: `websecurity serves the demo application for the pluggable identity and
authorization policies (cookie, session or JWT identity; dictionary, database
or casbin authorization), issues tokens for the JWT identity policy and
manages the users of the database authorization policy.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(hashPasswordCmd)
	rootCmd.AddCommand(usersCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
