package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spigell/listing-advisor/internal/tables"
)

// Actual version can be specified in build command.
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the version of the embedded lookup tables",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s (tables v%d)\n", app, version, tables.Default().Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
