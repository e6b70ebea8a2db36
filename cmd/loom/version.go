package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomwork/loom/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the loom version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("loom %s\n", version.Get())
	},
}
