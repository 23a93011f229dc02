package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserGetCmd())
	cmd.AddCommand(newUserDeleteCmd())
	cmd.AddCommand(newUserLoginCmd())
	cmd.AddCommand(newUserLogoutCmd())
	cmd.AddCommand(newUserRenameCmd())
	cmd.AddCommand(newUserPasswdCmd())
	cmd.AddCommand(newUserConnectCmd())
	cmd.AddCommand(newUserBlockCmd())
	cmd.AddCommand(newUserUnblockCmd())
	cmd.AddCommand(newUserBlockStatusCmd())
	cmd.AddCommand(newUserMessagesCmd())
	cmd.AddCommand(newUserTopCmd())

	return cmd
}

func newUserCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> <password>",
		Short: "Register a new user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": args[0], "password": args[1]}
			var result User

			if err := client.Post("/api/v1/users", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newUserGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show a user's directory record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result User

			if err := client.Get(fmt.Sprintf("/api/v1/users/%s", args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newUserDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name> <password>",
		Short: "Delete a user account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"password": args[1]}

			if err := client.Delete(fmt.Sprintf("/api/v1/users/%s", args[0]), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("User deleted")
			return nil
		},
	}
}

func newUserLoginCmd() *cobra.Command {
	var connectionID int64
	var dummy bool

	cmd := &cobra.Command{
		Use:   "login <name> <password>",
		Short: "Log a user in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"password":      args[1],
				"connection_id": connectionID,
				"dummy":         dummy,
			}
			var result LoginResult

			if err := client.Post(fmt.Sprintf("/api/v1/users/%s/login", args[0]), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&connectionID, "connection", 0, "Connection ID to record for the session")
	cmd.Flags().BoolVar(&dummy, "dummy", false, "Log in as a dummy user")

	return cmd
}

func newUserLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <name>",
		Short: "Log a user out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(fmt.Sprintf("/api/v1/users/%s/logout", args[0]), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Logged out")
			return nil
		},
	}
}

func newUserRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name> <password> <new-name>",
		Short: "Change a username",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"password": args[1], "new_username": args[2]}

			if err := client.Patch(fmt.Sprintf("/api/v1/users/%s/username", args[0]), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Renamed %s to %s", args[0], args[2]))
			return nil
		},
	}
}

func newUserPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <name> <password> <new-password>",
		Short: "Change a password",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"password": args[1], "new_password": args[2]}

			if err := client.Patch(fmt.Sprintf("/api/v1/users/%s/password", args[0]), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Password changed")
			return nil
		},
	}
}

func newUserConnectCmd() *cobra.Command {
	var connectionID int64

	cmd := &cobra.Command{
		Use:   "connect <name> <password>",
		Short: "Update a user's connection ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"password": args[1], "connection_id": connectionID}

			if err := client.Patch(fmt.Sprintf("/api/v1/users/%s/connection", args[0]), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Connection ID updated")
			return nil
		},
	}

	cmd.Flags().Int64Var(&connectionID, "connection", 0, "New connection ID")
	_ = cmd.MarkFlagRequired("connection")

	return cmd
}

func newUserBlockCmd() *cobra.Command {
	var minutes int64

	cmd := &cobra.Command{
		Use:   "block <name>",
		Short: "Suspend a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"minutes": minutes}

			if err := client.Post(fmt.Sprintf("/api/v1/users/%s/block", args[0]), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Blocked %s for %d minutes", args[0], minutes))
			return nil
		},
	}

	cmd.Flags().Int64Var(&minutes, "minutes", 30, "Suspension length in minutes")

	return cmd
}

func newUserUnblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <name>",
		Short: "Lift a user's suspension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(fmt.Sprintf("/api/v1/users/%s/block", args[0]), nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Unblocked")
			return nil
		},
	}
}

func newUserBlockStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block-status <name>",
		Short: "Check a user's suspension status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result BlockStatus

			if err := client.Get(fmt.Sprintf("/api/v1/users/%s/block", args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newUserMessagesCmd() *cobra.Command {
	var delta int64

	cmd := &cobra.Command{
		Use:   "messages <name>",
		Short: "Adjust a user's message count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"delta": delta}
			var result MessageCount

			if err := client.Post(fmt.Sprintf("/api/v1/users/%s/messages", args[0]), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().Int64Var(&delta, "delta", 1, "Amount to add (may be negative)")

	return cmd
}

func newUserTopCmd() *cobra.Command {
	var n int
	var loggedIn bool

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the most active users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/users/top?n=%d", n)
			if loggedIn {
				path += "&logged_in=true"
			}

			var result Leaderboard
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&n, "n", 10, "Number of entries to show")
	cmd.Flags().BoolVar(&loggedIn, "logged-in", false, "Restrict to users currently logged in")

	return cmd
}
