package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for formcourier.
// Invoked without a subcommand it behaves like "formcourier run" and asks
// for every value interactively.
func NewRootCmd() *cobra.Command {
	runCmd := NewRunCmd()

	cmd := &cobra.Command{
		Use:   "formcourier",
		Short: "Submit a contact form on every website in a list",
		Long: `formcourier visits every website in a URL list, locates the site's contact
page and contact form, fills the e-mail, phone and message fields with the
values you provide, and submits the form.

The outcome of every site is written to a results log (results.log by default):
  https://example.com: submitted
  https://example.org: no form found

Run without a subcommand to be asked for the URL list, the contact values and
the delay between sites.`,
		Version:       getVersion(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCmd.RunE(runCmd, nil)
		},
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON instead of text")

	// Add subcommands
	cmd.AddCommand(runCmd)
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
