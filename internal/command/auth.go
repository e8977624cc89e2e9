package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"carecircle/internal/model"
)

func passwordFlag(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("CARECIRCLE_PASSWORD")
	}
	if password == "" {
		return "", fmt.Errorf("--password is required or set CARECIRCLE_PASSWORD")
	}
	return password, nil
}

// NewSignUpCmd creates the signup command.
func NewSignUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			email, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			password, err := passwordFlag(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			profile, err := ctx.Client.SignUp(cmd.Context(), email, password, name, role)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return printJSON(cmd, profile)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s account for %s\n", profile.Role, profile.Email)
			return nil
		},
	}

	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("password", "", "password (or CARECIRCLE_PASSWORD)")
	cmd.Flags().String("role", model.RoleUser, "user or caregiver")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// NewSignInCmd creates the signin command.
func NewSignInCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			email, _ := cmd.Flags().GetString("email")
			password, err := passwordFlag(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			session, err := ctx.Client.SignIn(cmd.Context(), email, password)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := ctx.Tokens.Save(session.Token); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return printJSON(cmd, session.Profile)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", session.Profile.Name, session.Profile.Role)
			return nil
		},
	}

	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "password (or CARECIRCLE_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// NewSignOutCmd creates the signout command.
func NewSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Revoke the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			// 本地 token 无论服务端结果如何都清除
			serverErr := ctx.Client.SignOut(cmd.Context())
			if err := ctx.Tokens.Clear(); err != nil {
				return writeCommandError(cmd, err)
			}
			if serverErr != nil {
				return writeCommandError(cmd, serverErr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

// NewMeCmd creates the me command.
func NewMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			profile, err := ctx.Client.Me(cmd.Context())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return printJSON(cmd, profile)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", profile.Name, profile.Email)
			fmt.Fprintf(out, "role: %s\n", profile.Role)
			if profile.HasLocation() {
				fmt.Fprintf(out, "location: %.6f, %.6f\n", *profile.Latitude, *profile.Longitude)
			}
			return nil
		},
	}
}
