package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vaultdesk",
		Short: "VaultDesk document client",
		Long: `vaultdesk talks to a VaultDesk document server: browse, preview, upload and
download documents, unlock PIN protected files, export everything you can
read, and manage users when signed in as an admin.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(app.out)
	cmd.SetIn(app.in)
	cmd.AddCommand(
		newLoginCmd(app),
		newRegisterCmd(app),
		newLogoutCmd(app),
		newWhoAmICmd(app),
		newDocsCmd(app),
		newDashboardCmd(app),
		newAdminCmd(app),
		newExportCmd(app),
		newHistoryCmd(app),
	)
	return cmd
}
