// Package commands implements the CLI commands for chartscrape.
package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/chartscrape/internal/logger"
	"github.com/jmylchreest/chartscrape/internal/scrape"
	"github.com/jmylchreest/chartscrape/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "chartscrape",
	Short: "Scrape case and death counts from dashboard bar charts",
	Long: `Chartscrape opens dashboard pages in Chrome, hovers over every bar of
their charts and appends the values shown in the tooltips to one
semicolon-delimited file per country. Rows already on disk are not
written again.

Examples:
  # One country into an explicit file
  chartscrape scrape -i "https://covid19.who.int/region/euro/country/it" -o data/italy.csv

  # Every page listed in a file, one file per country plus a manifest
  chartscrape scrape -r -i countries.txt -o data/

  # Export a country file as JSON
  chartscrape export -i data/italy.csv --format json`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Options{
			Debug: viper.GetBool("debug"),
			Quiet: viper.GetBool("quiet"),
			JSON:  viper.GetBool("log_json"),
		})
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.chartscrape.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors and hide status lines")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".chartscrape")
		viper.SetConfigType("yaml")
	}

	// CHARTSCRAPE_READY_TIMEOUT and friends
	viper.SetEnvPrefix("CHARTSCRAPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		reportError(err)
	}
	return err
}

// Exit codes.
const (
	exitOK           = 0
	exitError        = 1
	exitInputMissing = 2
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, scrape.ErrInputNotFound):
		return exitInputMissing
	default:
		return exitError
	}
}

// reportError prints err for the user.
func reportError(err error) {
	switch {
	case errors.Is(err, scrape.ErrInputNotFound):
		fmt.Fprintf(os.Stderr, "Error: %v\nCheck the --input path; in recursive mode it must be an existing URL list file.\n", err)
	case errors.Is(err, scrape.ErrOverwriteDeclined):
		fmt.Fprintln(os.Stderr, "Nothing scraped: the existing manifest was kept. Use --reset-data to overwrite it without asking.")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
