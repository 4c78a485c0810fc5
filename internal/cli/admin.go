package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/vaultdesk/internal/model"
	"github.com/dharsanguruparan/vaultdesk/internal/views"
)

var errNotAdmin = errors.New("this command needs an admin account")

func newAdminCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage users and every document (admins only)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.principal()
			if err != nil {
				return err
			}
			if !p.IsAdmin() {
				return errNotAdmin
			}
			return nil
		},
	}
	cmd.AddCommand(
		newAdminUsersCmd(app),
		newAdminToggleCmd(app),
		newAdminRoleCmd(app),
		newAdminDocsCmd(app),
	)
	return cmd
}

func newAdminUsersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := app.client.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			renderUsers(app.out, users)
			return nil
		},
	}
}

func newAdminToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <user-id>",
		Short: "Activate or deactivate an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.client.ToggleUserStatus(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.printf("Toggled status of %s\n", args[0])
			return nil
		},
	}
}

func newAdminRoleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "role <user-id> <user|admin>",
		Short: "Change an account's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := model.Role(args[1])
			if !role.Valid() {
				return fmt.Errorf("unknown role %q", args[1])
			}
			if err := app.client.UpdateUserRole(cmd.Context(), args[0], role); err != nil {
				return err
			}
			app.printf("%s is now %s\n", args[0], role)
			return nil
		},
	}
}

func newAdminDocsCmd(app *App) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List every document including older versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.principal()
			if err != nil {
				return err
			}
			page, err := app.client.ListDocuments(cmd.Context(), model.ListFilter{
				Search:          search,
				Page:            1,
				Limit:           app.cfg.AdminLimit,
				ShowAllVersions: true,
			})
			if err != nil {
				return err
			}
			listing := views.NewListing(page, p)
			renderRows(app.out, listing.Rows)
			app.printf("\n%s\n", listing.Summary())
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Search names, descriptions and tags")
	return cmd
}
