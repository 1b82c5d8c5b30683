package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Server flags
	Port        int
	Host        string
	Environment string

	// Content flags
	ContentDir string
	Watch      bool
	Cache      string

	// Channel flags
	Locale  string
	Sitemap string

	// Output flags
	OutputFormat string
}

// configKeys maps flag names onto the config keys they override.
var configKeys = map[string]string{
	"port":        "server.port",
	"host":        "server.host",
	"environment": "server.environment",
	"content-dir": "content.dir",
	"watch":       "content.watch",
	"cache":       "cache.backend",
}

var outputFormats = []string{"table", "json", "yaml"}

// AddStandardFlags adds the named flag groups (server, content, channel,
// output) to a command.
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}

	for _, flagType := range flagTypes {
		switch flagType {
		case "server":
			addServerFlags(cmd, flags)
		case "content":
			addContentFlags(cmd, flags)
		case "channel":
			addChannelFlags(cmd, flags)
		case "output":
			addOutputFlags(cmd, flags)
		}
	}

	return flags
}

func addServerFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().IntVarP(&flags.Port, "port", "p", 3000, "Port to serve on")
	cmd.Flags().StringVar(&flags.Host, "host", "localhost", "Host to bind to")
	cmd.Flags().StringVar(&flags.Environment, "environment", "", "Environment (development, production)")
}

func addContentFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVar(&flags.ContentDir, "content-dir", "", "Serve content from a local directory instead of the CMS")
	cmd.Flags().BoolVar(&flags.Watch, "watch", false, "Reload when files under --content-dir change")
	cmd.Flags().StringVar(&flags.Cache, "cache", "", "Content cache backend (memory, redis)")
}

func addChannelFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVar(&flags.Locale, "locale", "", "Locale (default is the first configured locale)")
	cmd.Flags().StringVar(&flags.Sitemap, "sitemap", "", "Sitemap channel (default is cms.sitemap)")
}

func addOutputFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", "table", "Output format (table|json|yaml)")
}

// BindConfigFlags binds the command's config-backed flags into viper. It
// runs from PreRunE so commands sharing a flag name do not overwrite each
// other's bindings.
func BindConfigFlags(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := configKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = viper.BindPFlag(key, f)
	})
	return err
}

// ValidateFlags validates flag combinations and values
func (f *StandardFlags) ValidateFlags() error {
	if f.Port != 0 && (f.Port < 1 || f.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535, got %d", f.Port)
	}
	if f.Watch && f.ContentDir == "" && viper.GetString("content.dir") == "" {
		return fmt.Errorf("--watch requires --content-dir or content.dir")
	}
	if f.Cache != "" {
		switch strings.ToLower(f.Cache) {
		case "memory", "redis":
		default:
			return fmt.Errorf("invalid cache backend %q (supported: memory, redis)", f.Cache)
		}
	}
	if f.OutputFormat != "" {
		return validateFormat(f.OutputFormat, outputFormats)
	}
	return nil
}

func validateFormat(format string, valid []string) error {
	for _, v := range valid {
		if format == v {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q (supported: %s)", format, strings.Join(valid, ", "))
}
