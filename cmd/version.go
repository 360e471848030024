package cmd

import (
	"github.com/lanternsec/lantern/internal/message"
	"github.com/lanternsec/lantern/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Lantern",
	Long:  `All software has versions. This is Lantern's`,
	Run: func(cmd *cobra.Command, args []string) {
		message.Info(version.FullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
