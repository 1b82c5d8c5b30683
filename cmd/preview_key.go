package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitezone/internal/config"
	"github.com/conneroisu/sitezone/internal/preview"
)

var previewKeyTTL time.Duration

var previewKeyCmd = &cobra.Command{
	Use:   "preview-key",
	Short: "Print a signed preview key",
	Long: `Sign a preview key with the configured security key. Append it to any page
URL as ?agilitypreviewkey=<key> to enter preview mode.

Examples:
  sitezone preview-key
  sitezone preview-key --ttl 15m`,
	RunE: runPreviewKey,
}

func init() {
	rootCmd.AddCommand(previewKeyCmd)
	previewKeyCmd.Flags().DurationVar(&previewKeyTTL, "ttl", 0, "Key lifetime (default is preview.key_ttl)")
}

func runPreviewKey(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.CMS.SecurityKey == "" {
		return fmt.Errorf("no security key configured (set AGILITY_SECURITY_KEY)")
	}

	ttl := cfg.Preview.KeyTTL
	if previewKeyTTL > 0 {
		ttl = previewKeyTTL
	}
	key, err := preview.NewKeyManager(cfg.CMS.SecurityKey, ttl).Generate(time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), key)
	return nil
}
