package cmd

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/websecurity/auth"
)

var stdinFlag bool

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print the bcrypt hash of a password",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		}
		password, err := readPassword(cmd, password, stdinFlag)
		if err != nil {
			return err
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	hashPasswordCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read the password from stdin")
}

// readPassword returns password, or the first line of stdin when fromStdin is set
func readPassword(cmd *cobra.Command, password string, fromStdin bool) (string, error) {
	if fromStdin {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if scanner.Scan() {
			password = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
	}
	if password == "" {
		return "", fmt.Errorf("password is required (pass it as an argument or use --stdin)")
	}
	return password, nil
}
