package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"noote/client/internal/api"
	"noote/client/internal/app"
)

func (e *env) loginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and store the access token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			if len(args) == 1 {
				username = args[0]
			}
			password, _ := cmd.Flags().GetString("password")
			var err error
			if username == "" {
				if username, err = e.readLine("Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = e.readPassword("Password: "); err != nil {
					return err
				}
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if err := e.app.Login(ctx, username, password); err != nil {
				return fail(app.ActionLogin, err)
			}
			if user, ok := e.app.Session().User(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", user.Username)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
			return nil
		},
	}
	cmd.Flags().StringP("username", "u", "", "Username")
	cmd.Flags().StringP("password", "p", "", "Password, prompted when empty")
	return cmd
}

func (e *env) registerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			var err error
			if username == "" {
				if username, err = e.readLine("Username: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = e.readLine("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = e.readPassword("Password: "); err != nil {
					return err
				}
			}
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			user, err := e.app.Register(ctx, api.RegisterRequest{Username: username, Email: email, Password: password})
			if err != nil {
				return fail(app.ActionRegister, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s, run \"noote login\" to sign in\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringP("username", "u", "", "Username")
	cmd.Flags().StringP("email", "e", "", "Email")
	cmd.Flags().StringP("password", "p", "", "Password, prompted when empty")
	return cmd
}

func (e *env) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Logout(cmd.Context()); err != nil {
				return fail(app.ActionLoad, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (e *env) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			if !e.app.Tokens().HasToken(ctx) {
				return ErrLoginRequired
			}
			user, err := e.app.Auth().Me(ctx)
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", user.Username, user.Email)
			if claims, ok := e.app.TokenClaims(ctx); ok && !claims.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "token expires %s\n", claims.ExpiresAt.Local().Format(timeLayout))
			}
			return nil
		},
	}
}

func (e *env) openCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Resolve a route through the guard and print where it lands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := e.requestContext(cmd)
			defer cancel()
			t, err := e.app.Start(ctx, args[0])
			if err != nil {
				return fail(app.ActionLoad, err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s -> %s (%s)\n", t.Outcome.Requested, t.To.Path, t.To.Route.Name)
			fmt.Fprintf(out, "guard: %s\n", t.Outcome.Decision)
			for _, name := range slices.Sorted(maps.Keys(t.To.Params)) {
				fmt.Fprintf(out, "param %s=%s\n", name, t.To.Params[name])
			}
			return nil
		},
	}
}
