package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/upb/websecurity/auth"
	"github.com/upb/websecurity/config"
	"github.com/upb/websecurity/internal/observability"
	"github.com/upb/websecurity/models"
	"github.com/upb/websecurity/repositories"
	"github.com/upb/websecurity/repositories/sqldb"
)

var (
	userPasswordFlag  string
	userStdinFlag     bool
	userSuperuserFlag bool
)

// usersCmd manages the accounts of the database authorization policy
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage the users of the database authorization policy",
	Long: `Commands for managing database users directly, using the same
DB_DRIVER / DATABASE_URL / SQLITE_PATH settings as serve.`,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an enabled user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd, userPasswordFlag, userStdinFlag)
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		return withUsers(cmd.Context(), func(ctx context.Context, users repositories.UserRepository) error {
			user := models.NewUser(args[0], hash)
			user.IsSuperuser = userSuperuserFlag
			if err := users.Create(ctx, user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Username, user.ID)
			return nil
		})
	},
}

var usersShowCmd = &cobra.Command{
	Use:   "show <username|id>",
	Short: "Show a user and its permissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUsers(cmd.Context(), func(ctx context.Context, users repositories.UserRepository) error {
			user, err := findUser(ctx, users, args[0])
			if err != nil {
				return err
			}
			perms, err := users.Permissions(ctx, user.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:          %s\n", user.ID)
			fmt.Fprintf(out, "username:    %s\n", user.Username)
			fmt.Fprintf(out, "superuser:   %t\n", user.IsSuperuser)
			fmt.Fprintf(out, "disabled:    %t\n", user.Disabled)
			fmt.Fprintf(out, "permissions: %s\n", strings.Join(perms, ", "))
			return nil
		})
	},
}

var usersDisableCmd = &cobra.Command{
	Use:   "disable <username|id>",
	Short: "Disable a user; disabled users cannot log in and are unknown to the policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, args[0], true)
	},
}

var usersEnableCmd = &cobra.Command{
	Use:   "enable <username|id>",
	Short: "Enable a disabled user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, args[0], false)
	},
}

var usersGrantCmd = &cobra.Command{
	Use:   "grant <username|id> <permission>...",
	Short: "Grant permissions to a user",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUsers(cmd.Context(), func(ctx context.Context, users repositories.UserRepository) error {
			user, err := findUser(ctx, users, args[0])
			if err != nil {
				return err
			}
			for _, perm := range args[1:] {
				if err := users.AddPermission(ctx, user.ID, perm); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s\n", strings.Join(args[1:], ", "), user.Username)
			return nil
		})
	},
}

var usersRevokeCmd = &cobra.Command{
	Use:   "revoke <username|id> <permission>...",
	Short: "Revoke permissions from a user",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUsers(cmd.Context(), func(ctx context.Context, users repositories.UserRepository) error {
			user, err := findUser(ctx, users, args[0])
			if err != nil {
				return err
			}
			for _, perm := range args[1:] {
				if err := users.RemovePermission(ctx, user.ID, perm); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s from %s\n", strings.Join(args[1:], ", "), user.Username)
			return nil
		})
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <username|id>",
	Short: "Delete a user and its permissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUsers(cmd.Context(), func(ctx context.Context, users repositories.UserRepository) error {
			user, err := findUser(ctx, users, args[0])
			if err != nil {
				return err
			}
			if err := users.Delete(ctx, user.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", user.Username)
			return nil
		})
	},
}

func init() {
	usersCreateCmd.Flags().StringVar(&userPasswordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	usersCreateCmd.Flags().BoolVar(&userStdinFlag, "stdin", false, "Read the password from stdin")
	usersCreateCmd.Flags().BoolVar(&userSuperuserFlag, "superuser", false, "Grant every permission")

	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersShowCmd)
	usersCmd.AddCommand(usersDisableCmd)
	usersCmd.AddCommand(usersEnableCmd)
	usersCmd.AddCommand(usersGrantCmd)
	usersCmd.AddCommand(usersRevokeCmd)
	usersCmd.AddCommand(usersDeleteCmd)
}

// withUsers opens the configured database, ensures the schema and runs fn
func withUsers(ctx context.Context, fn func(ctx context.Context, users repositories.UserRepository) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	factory, err := sqldb.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer factory.Close()

	if err := factory.InitSchema(ctx); err != nil {
		return err
	}
	return fn(ctx, factory.NewRepositories().Users)
}

// findUser resolves a UUID or a username, disabled users included
func findUser(ctx context.Context, users repositories.UserRepository, ref string) (*models.User, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return users.GetByID(ctx, id)
	}
	return users.GetByUsername(ctx, ref)
}

func setDisabled(cmd *cobra.Command, ref string, disabled bool) error {
	return withUsers(cmd.Context(), func(ctx context.Context, users repositories.UserRepository) error {
		user, err := findUser(ctx, users, ref)
		if err != nil {
			return err
		}
		user.Disabled = disabled
		if err := users.Update(ctx, user); err != nil {
			return err
		}
		state := "enabled"
		if disabled {
			state = "disabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s user %s\n", state, user.Username)
		return nil
	})
}
