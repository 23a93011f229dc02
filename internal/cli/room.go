package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomMembersCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomLeaveCmd())
	cmd.AddCommand(newRoomUpdateCmd())
	cmd.AddCommand(newRoomPurgeCmd())
	cmd.AddCommand(newRoomTopCmd())

	return cmd
}

func parseRoomNumber(arg string) (int64, error) {
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("room number must be an integer: %q", arg)
	}
	return n, nil
}

func newRoomCreateCmd() *cobra.Command {
	var serverID string

	cmd := &cobra.Command{
		Use:   "create <number> <title> <owner>",
		Short: "Create a room",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseRoomNumber(args[0])
			if err != nil {
				return err
			}

			req := map[string]any{
				"number":    number,
				"title":     args[1],
				"owner":     args[2],
				"server_id": serverID,
			}
			var result Room

			if err := client.Post("/api/v1/rooms", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverID, "server-id", "", "Chat server hosting the room")
	_ = cmd.MarkFlagRequired("server-id")

	return cmd
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <number>",
		Short: "Show a room's directory record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseRoomNumber(args[0])
			if err != nil {
				return err
			}

			var result Room
			if err := client.Get(fmt.Sprintf("/api/v1/rooms/%d", number), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members <number>",
		Short: "List a room's members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseRoomNumber(args[0])
			if err != nil {
				return err
			}

			var result Members
			if err := client.Get(fmt.Sprintf("/api/v1/rooms/%d/members", number), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <number> <username>",
		Short: "Add a user to a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseRoomNumber(args[0])
			if err != nil {
				return err
			}

			req := map[string]string{"username": args[1]}
			if err := client.Post(fmt.Sprintf("/api/v1/rooms/%d/members", number), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("%s joined room %d", args[1], number))
			return nil
		},
	}
}

func newRoomLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <number> <username>",
		Short: "Remove a user from a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseRoomNumber(args[0])
			if err != nil {
				return err
			}

			var result RemoveMemberResult
			if err := client.Delete(fmt.Sprintf("/api/v1/rooms/%d/members/%s", number, args[1]), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomUpdateCmd() *cobra.Command {
	var title, owner, serverID string

	cmd := &cobra.Command{
		Use:   "update <number>",
		Short: "Update a room's title, owner, or server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseRoomNumber(args[0])
			if err != nil {
				return err
			}

			req := map[string]any{}
			if cmd.Flags().Changed("title") {
				req["title"] = title
			}
			if cmd.Flags().Changed("owner") {
				req["owner"] = owner
			}
			if cmd.Flags().Changed("server-id") {
				req["server_id"] = serverID
			}
			if len(req) != 1 {
				return fmt.Errorf("exactly one of --title, --owner, --server-id must be set")
			}

			if err := client.Patch(fmt.Sprintf("/api/v1/rooms/%d", number), req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Room updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New room title")
	cmd.Flags().StringVar(&owner, "owner", "", "New room owner (must be a member)")
	cmd.Flags().StringVar(&serverID, "server-id", "", "New hosting server")

	return cmd
}

func newRoomPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <number>",
		Short: "Evict all members and destroy the room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseRoomNumber(args[0])
			if err != nil {
				return err
			}

			var result PurgeResult
			if err := client.Delete(fmt.Sprintf("/api/v1/rooms/%d", number), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newRoomTopCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the most populated rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Leaderboard
			if err := client.Get(fmt.Sprintf("/api/v1/rooms/top?n=%d", n), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&n, "n", 10, "Number of entries to show")

	return cmd
}
