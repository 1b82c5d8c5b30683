package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/sitezone/internal/version"
)

var (
	versionFormat   string
	versionShort    bool
	versionDetailed bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the version, commit, build time, Go version and platform of this
binary.

Examples:
  sitezone version
  sitezone version --detailed
  sitezone version --format json`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	switch versionFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(versionReport())
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(versionReport())
	case "text":
		return writeVersionText(w)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", versionFormat)
	}
}

type versionOutput struct {
	version.BuildInfo `yaml:",inline"`
	IsRelease         bool `json:"is_release" yaml:"is_release"`
}

func versionReport() versionOutput {
	return versionOutput{BuildInfo: *version.GetBuildInfo(), IsRelease: version.IsRelease()}
}

func writeVersionText(w io.Writer) error {
	switch {
	case versionShort:
		_, err := fmt.Fprintln(w, version.GetShortVersion())
		return err
	case versionDetailed:
		buildType := "development"
		if version.IsRelease() {
			buildType = "release"
		}
		_, err := fmt.Fprintf(w, "%s\nBuild:    %s\n", version.GetDetailedVersion(), buildType)
		return err
	default:
		_, err := fmt.Fprintln(w, "sitezone "+version.GetShortVersion())
		return err
	}
}
