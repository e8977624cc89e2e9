package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"carecircle/pkg/careclient"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	if careclient.IsUnauthorized(err) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: session missing or expired. Try: "+AppName+" signin")
	}
	return err
}
