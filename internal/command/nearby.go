package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"carecircle/internal/model"
	"carecircle/internal/reconcile"
	"carecircle/pkg/geo"
)

// NewNearbyCmd creates the nearby command.
func NewNearbyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List linked patients within the proximity threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			w := reconcile.NewProximityWatcher(ctx.Client, 0, locationFromFlags(cmd), ctx.Logger)
			res, err := w.Check(cmd.Context())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return printNearby(cmd, ctx, res)
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Re-check nearby patients on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			interval, _ := cmd.Flags().GetDuration("interval")
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := reconcile.NewProximityWatcher(ctx.Client, interval, locationFromFlags(cmd), ctx.Logger)
			err = w.Run(runCtx, func(res *model.NearbyResult) {
				_ = printNearby(cmd, ctx, res)
			})
			if err != nil && runCtx.Err() == nil {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}
	watch.Flags().Duration("interval", reconcile.DefaultPollInterval, "poll interval")

	cmd.PersistentFlags().Float64("lat", 0, "report this latitude before checking")
	cmd.PersistentFlags().Float64("lng", 0, "report this longitude before checking")
	cmd.AddCommand(watch)
	return cmd
}

// locationFromFlags 只有同时给出 --lat 和 --lng 时才上报位置
func locationFromFlags(cmd *cobra.Command) reconcile.LocationFunc {
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
		return nil
	}
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")
	return func(context.Context) (geo.Point, bool) {
		return geo.Point{Latitude: lat, Longitude: lng}, true
	}
}

func printNearby(cmd *cobra.Command, ctx *CommandContext, res *model.NearbyResult) error {
	if ctx.JSONMode {
		return printJSON(cmd, res)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "[%s] from %.5f, %.5f (%s), within %.0f m:\n",
		time.Now().Format("15:04:05"), res.Latitude, res.Longitude, res.LocationSource, res.ThresholdMeters)
	if len(res.Patients) == 0 {
		fmt.Fprintln(out, "  no patients nearby")
		return nil
	}
	for _, p := range res.Patients {
		fmt.Fprintf(out, "  %s  %.1f m\n", p.Patient.Name, p.DistanceKm*1000)
	}
	return nil
}
