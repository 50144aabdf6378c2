// Package cli wires the angle command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angle-app/angle/internal/config"
)

func Main() {
	_ = godotenv.Load() // optional .env in the working directory

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "angle",
		Short:        "Timeline editing and export server for generated videos",
		Version:      config.Version,
		SilenceUsage: true,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.AddCommand(newServeCommand(), newExportCommand(), newPreviewCommand())
	return root
}
