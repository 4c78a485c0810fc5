package cli

import (
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/vaultdesk/internal/account"
	"github.com/dharsanguruparan/vaultdesk/internal/model"
)

func newLoginCmd(app *App) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the token for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = GetSimpleText(app.in, "Email", app.out); err != nil {
					return err
				}
			}
			password, err := GetSecret("Password", app.out)
			if err != nil {
				return err
			}
			u, err := app.accounts.Login(cmd.Context(), account.LoginRequest{Email: email, Password: password})
			if err != nil {
				return err
			}
			app.printf("Logged in as %s (%s)\n", displayName(u), u.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var (
		username string
		email    string
		role     string
		secret   string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if username == "" {
				if username, err = GetSimpleText(app.in, "Username", app.out); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = GetSimpleText(app.in, "Email", app.out); err != nil {
					return err
				}
			}
			password, err := GetSecret("Password", app.out)
			if err != nil {
				return err
			}
			confirm, err := GetSecret("Confirm password", app.out)
			if err != nil {
				return err
			}
			if model.Role(role) == model.RoleAdmin && secret == "" {
				if secret, err = GetSecret("Admin secret", app.out); err != nil {
					return err
				}
			}
			u, err := app.accounts.Register(cmd.Context(), account.RegisterRequest{
				Username:    username,
				Email:       email,
				Password:    password,
				Confirm:     confirm,
				Role:        model.Role(role),
				AdminSecret: secret,
			})
			if err != nil {
				return err
			}
			app.printf("Registered and logged in as %s (%s)\n", displayName(u), u.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (at least 3 characters)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVar(&role, "role", string(model.RoleUser), "Account role: user or admin")
	cmd.Flags().StringVar(&secret, "admin-secret", "", "Secret required to register an admin")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.accounts.Logout(); err != nil {
				return err
			}
			// PINs learned under this account must not outlive it
			app.ctrl.CancelAll()
			app.ctrl.ForgetPins()
			app.printf("Logged out\n")
			return nil
		},
	}
}

func newWhoAmICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, offline, err := app.accounts.WhoAmI(cmd.Context())
			if err != nil {
				return err
			}
			app.printf("%s <%s> role=%s id=%s", p.Username, p.Email, p.Role, p.ID)
			if offline {
				app.printf(" (offline, from saved credentials)")
			}
			app.printf("\n")
			return nil
		},
	}
}

func displayName(u model.User) string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
