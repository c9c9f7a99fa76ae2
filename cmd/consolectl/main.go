// Command consolectl drives the review workflow from a terminal with the same
// controllers the console server uses.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "consolectl",
		Short:         "Review KYC forms and requests from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.stateDir, "state-dir", "", "directory holding the saved session (default: user config dir)")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(loginCmd(a))
	rootCmd.AddCommand(logoutCmd(a))
	rootCmd.AddCommand(reviewCmd(a, "kyc", kycCommand))
	rootCmd.AddCommand(reviewCmd(a, "requests", requestsCommand))
	rootCmd.AddCommand(eventsCmd(a))
	rootCmd.AddCommand(mfaCmd(a))

	return rootCmd
}
