package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/sitezone/internal/cache"
	"github.com/conneroisu/sitezone/internal/cms"
	"github.com/conneroisu/sitezone/internal/config"
	"github.com/conneroisu/sitezone/internal/content"
	"github.com/conneroisu/sitezone/internal/requestctx"
	"github.com/conneroisu/sitezone/internal/server"
)

var sitemapFlags *StandardFlags

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Print the flat sitemap",
	Long: `Fetch the flat sitemap for a locale and channel and print it, using the
same content source the server would use.

Examples:
  sitemap                               # default locale, table output
  sitemap --locale fr-ca -o json
  sitemap --content-dir ./content -o yaml`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := sitemapFlags.ValidateFlags(); err != nil {
			return err
		}
		return BindConfigFlags(cmd)
	},
	RunE: runSitemap,
}

func init() {
	rootCmd.AddCommand(sitemapCmd)
	sitemapFlags = AddStandardFlags(sitemapCmd, "channel", "output")
	sitemapCmd.Flags().StringVar(&sitemapFlags.ContentDir, "content-dir", "", "Read content from a local directory instead of the CMS")
	sitemapCmd.Flags().Bool("preview", false, "Include unpublished pages")
}

func runSitemap(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	source, err := server.NewSource(cfg, logger)
	if err != nil {
		return err
	}
	client := content.NewClient(content.Options{
		Source: source,
		Store:  cache.NewMemoryStore(cfg.Cache.MaxEntries),
		TTL:    cfg.CMS.FetchCacheDuration(),
		Logger: logger,
	})

	rc := requestctx.NewResolver(cfg.CMS, false, nil).Default()
	if sitemapFlags.Locale != "" {
		rc.Locale = config.NormalizeLocale(sitemapFlags.Locale)
	}
	if sitemapFlags.Sitemap != "" {
		rc.Sitemap = sitemapFlags.Sitemap
	}
	rc.IsPreview, _ = cmd.Flags().GetBool("preview")

	flat, err := client.GetSitemapFlat(cmd.Context(), rc)
	if err != nil {
		return fmt.Errorf("failed to fetch sitemap: %w", err)
	}
	return writeSitemap(cmd.OutOrStdout(), flat.Nodes(), sitemapFlags.OutputFormat)
}

func writeSitemap(w io.Writer, nodes []*cms.SitemapNode, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(nodes)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(nodes)
	default:
		return writeSitemapTable(w, nodes)
	}
}

func writeSitemapTable(w io.Writer, nodes []*cms.SitemapNode) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tTITLE\tPAGE\tCONTENT\tMENU\tREDIRECT")
	fmt.Fprintln(tw, "----\t-----\t----\t-------\t----\t--------")
	for _, n := range nodes {
		contentID := "-"
		if n.ContentID > 0 {
			contentID = strconv.Itoa(n.ContentID)
		}
		redirect := "-"
		if n.Redirect != nil && n.Redirect.URL != "" {
			redirect = n.Redirect.URL
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%t\t%s\n",
			n.Path, n.Title, n.PageID, contentID, n.Visible.Menu, redirect)
	}
	return tw.Flush()
}
