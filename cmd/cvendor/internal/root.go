package internal

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is set at link time with -ldflags "-X".
var Version = "devel"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cvendor",
		Short: "cvendor builds vendored C libraries for static linking",
		Long: `cvendor runs autoreconf (when the configure script is missing) and the
configure/make/make install sequence of a vendored autotools library, then
prints the directives the enclosing build needs to link it statically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newBuildCmd(&buildOptions{}), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cvendor version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "cvendor "+Version)
		},
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		logger := newLogger(os.Stderr, zerolog.InfoLevel)
		logger.Fatal().Err(err).Msg("cvendor failed")
	}
}
