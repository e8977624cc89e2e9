// Package command implements carectl, the terminal client for carecircle.
package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "carectl"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "carectl - terminal client for carecircle",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("api", "", "API base URL (defaults to CARECIRCLE_API_URL or http://localhost:8080)")
	cmd.PersistentFlags().String("token-file", "", "where the session token is stored")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().Bool("debug", false, "verbose logging")

	cmd.AddCommand(
		NewSignUpCmd(),
		NewSignInCmd(),
		NewSignOutCmd(),
		NewMeCmd(),
		NewNotificationsCmd(),
		NewReactCmd(),
		NewReactionsCmd(),
		NewQuestionsCmd(),
		NewNearbyCmd(),
		NewOutboxCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
