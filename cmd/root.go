// Package cmd provides the sitezone command line.
//
// Configuration is read, highest priority first, from:
//  1. command-line flags (--port, --content-dir, ...)
//  2. SITEZONE_<SECTION>_<OPTION> environment variables
//  3. the config file: --config, then SITEZONE_CONFIG_FILE, then
//     .sitezone.yml in the working directory
//
// CMS credentials additionally honour their AGILITY_* variables, which
// override all of the above.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/sitezone/internal/config"
	"github.com/conneroisu/sitezone/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sitezone",
	Short: "A headless CMS site server",
	Long: `sitezone serves a website whose pages, navigation and content live in a
headless CMS. Pages are resolved from the CMS sitemap, assembled from their
content zones and rendered through registered components.

Quick Start:
  sitezone serve                          Serve the site from the CMS
  sitezone serve --content-dir ./content  Serve a local content tree
  sitezone sitemap -o yaml                Print the flat sitemap
  sitezone preview-key                    Print a signed preview key`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .sitezone.yml, can also use SITEZONE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SITEZONE_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sitezone")
	}

	viper.SetEnvPrefix("SITEZONE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	}), nil
}
