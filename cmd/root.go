package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lanternsec/lantern/internal/logs"
	"github.com/lanternsec/lantern/internal/message"
	"github.com/lanternsec/lantern/pkg/links/options"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile     string
	quietFlag   bool
	noColorFlag bool
	silentFlag  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lantern",
	Short: "Lantern is a CLI tool for auditing identity and access posture in Microsoft 365 tenants.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		message.SetQuiet(quietFlag)
		message.SetNoColor(noColorFlag)
		message.SetSilent(silentFlag)
		message.Banner()

		if logger, err := logs.FileLogger(); err == nil {
			slog.SetDefault(logger)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lantern.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress informational output")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&silentFlag, "silent", false, "suppress all console output")

	outputOpt := options.OutputOpt
	rootCmd.PersistentFlags().StringP(outputOpt.Name, outputOpt.Short, outputOpt.Value, outputOpt.Description)

	generateCommands(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".lantern" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lantern")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
