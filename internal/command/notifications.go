package command

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"carecircle/internal/model"
	"carecircle/internal/reconcile"
)

// NewNotificationsCmd creates the notifications command group.
func NewNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"n"},
		Short:   "List and manage notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotificationsList(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List notifications, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runNotificationsList(cmd)
			},
		},
		&cobra.Command{
			Use:   "unread",
			Short: "Print the unread count",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, err := GetContext(cmd)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				n, err := ctx.Client.UnreadCount(cmd.Context())
				if err != nil {
					return writeCommandError(cmd, err)
				}
				if ctx.JSONMode {
					return printJSON(cmd, map[string]int64{"unread_count": n})
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "read <id>",
			Short: "Mark one notification as read",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, err := GetContext(cmd)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return writeCommandError(cmd, fmt.Errorf("invalid notification id: %s", args[0]))
				}
				if err := ctx.Client.MarkAsRead(cmd.Context(), id); err != nil {
					return writeCommandError(cmd, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked #%d as read\n", id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "read-all",
			Short: "Mark every notification as read",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, err := GetContext(cmd)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				if err := ctx.Client.MarkAllAsRead(cmd.Context()); err != nil {
					return writeCommandError(cmd, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All notifications marked as read")
				return nil
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Follow the unread count until interrupted",
			Args:  cobra.NoArgs,
			RunE:  runNotificationsWatch,
		},
	)
	return cmd
}

func runNotificationsList(cmd *cobra.Command) error {
	ctx, err := GetContext(cmd)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	items, err := ctx.Client.Notifications(cmd.Context())
	if err != nil {
		return writeCommandError(cmd, err)
	}
	if ctx.JSONMode {
		return printJSON(cmd, items)
	}
	printNotifications(cmd, items)
	return nil
}

func printNotifications(cmd *cobra.Command, items []model.NotificationView) {
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No notifications")
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTYPE\tTITLE\tWHEN")
	for _, n := range items {
		status := "unread"
		if n.IsRead {
			status = "read"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", n.ID, status, n.Type, n.Title, n.CreatedAt.Local().Format("Jan 2 15:04"))
	}
	_ = w.Flush()
}

func runNotificationsWatch(cmd *cobra.Command, args []string) error {
	ctx, err := GetContext(cmd)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	me, err := ctx.Client.Me(runCtx)
	if err != nil {
		return writeCommandError(cmd, err)
	}

	board := reconcile.NewNotificationBoard(ctx.Client, me.ID, ctx.Logger)
	out := cmd.OutOrStdout()
	board.OnChange(func(_ []model.NotificationView, unread int64) {
		if ctx.JSONMode {
			_ = printJSON(cmd, map[string]int64{"unread_count": unread})
			return
		}
		fmt.Fprintf(out, "unread: %d\n", unread)
	})
	if err := board.Resync(runCtx); err != nil {
		return writeCommandError(cmd, err)
	}

	if err := board.Follow(runCtx); err != nil && runCtx.Err() == nil {
		return writeCommandError(cmd, err)
	}
	return nil
}
