package command

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carecircle/internal/config"
	"carecircle/pkg/db"
	"carecircle/pkg/logger"
	"carecircle/pkg/mq"
	"carecircle/pkg/outbox"
)

type outboxContext struct {
	pool      *pgxpool.Pool
	repo      *outbox.Repository
	publisher *mq.Publisher
	logger    *zap.Logger
	jsonMode  bool
}

func (o *outboxContext) Close() {
	if o.publisher != nil {
		o.publisher.Close()
	}
	o.pool.Close()
	_ = o.logger.Sync()
}

// openOutbox 使用服务端配置直连数据库；withPublisher 为 true 时同时连接 MQ
func openOutbox(cmd *cobra.Command, withPublisher bool) (*outboxContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	jsonMode, _ := cmd.Flags().GetBool("json")
	log := logger.NewCLILogger(debug)

	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	o := &outboxContext{pool: pool, repo: outbox.NewRepository(pool), logger: log, jsonMode: jsonMode}

	if withPublisher {
		o.publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			pool.Close()
			return nil, err
		}
	}
	return o, nil
}

// NewOutboxCmd creates the operator commands for failed outbox events.
func NewOutboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay failed outbox events (operator)",
	}

	failed := &cobra.Command{
		Use:   "failed",
		Short: "List events that exhausted their retries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := openOutbox(cmd, false)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer o.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			events, err := o.repo.GetFailedEvents(cmd.Context(), limit)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if o.jsonMode {
				return printJSON(cmd, events)
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No failed events")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tROUTING KEY\tAGGREGATE\tRETRIES\tUPDATED\tLAST ERROR")
			for _, e := range events {
				lastErr := "-"
				if e.LastError != nil {
					lastErr = *e.LastError
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", e.ID, e.RoutingKey, e.AggregateType, e.RetryCount,
					e.UpdatedAt.Local().Format("Jan 2 15:04:05"), lastErr)
			}
			return w.Flush()
		},
	}
	failed.Flags().Int("limit", 50, "maximum events to list")

	replay := &cobra.Command{
		Use:   "replay [id]",
		Short: "Republish one failed event, or the most recent ones with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if all == (len(args) == 1) {
				return writeCommandError(cmd, fmt.Errorf("pass either an event id or --all"))
			}

			o, err := openOutbox(cmd, true)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer o.Close()
			svc := outbox.NewReplayService(o.repo, o.publisher, o.logger)

			if all {
				limit, _ := cmd.Flags().GetInt("limit")
				n, err := svc.ReplayFailedEvents(cmd.Context(), limit)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d events\n", n)
				return nil
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return writeCommandError(cmd, fmt.Errorf("invalid event id: %s", args[0]))
			}
			if err := svc.ReplayEvent(cmd.Context(), id); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replayed event %d\n", id)
			return nil
		},
	}
	replay.Flags().Bool("all", false, "replay the most recent failed events")
	replay.Flags().Int("limit", 100, "maximum events to replay with --all")

	cmd.AddCommand(failed, replay)
	return cmd
}
