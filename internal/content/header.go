package content

import (
	"context"
	"strings"

	"github.com/conneroisu/sitezone/internal/cms"
	"github.com/conneroisu/sitezone/internal/requestctx"
)

// HeaderReferenceName is the content list holding the site header.
const HeaderReferenceName = "siteheader"

// Header is the site-wide navigation header.
type Header struct {
	SiteName string         `json:"siteName"`
	Logo     cms.ImageField `json:"logo"`
	Links    []Link         `json:"links"`
}

type Link struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

type headerFields struct {
	SiteName string         `json:"siteName"`
	Logo     cms.ImageField `json:"logo"`
}

// GetHeader loads the header content and its navigation links. It never
// fails the request: a missing header yields nil, and a sitemap failure
// yields a header with no links.
func (c *Client) GetHeader(ctx context.Context, rc requestctx.Context) *Header {
	list, err := c.GetContentList(ctx, rc, cms.ListRequest{
		ReferenceName: HeaderReferenceName,
		Take:          1,
	})
	if err != nil {
		c.logger.Error(ctx, err, "Could not load site header", "locale", rc.Locale)
		return nil
	}
	if len(list.Items) == 0 {
		c.logger.Warn(ctx, nil, "Site header list is empty", "locale", rc.Locale)
		return nil
	}

	fields, err := cms.DecodeFields[headerFields](&list.Items[0])
	if err != nil {
		c.logger.Error(ctx, err, "Could not decode site header")
		return nil
	}
	header := &Header{SiteName: fields.SiteName, Logo: fields.Logo}

	nodes, err := c.GetSitemapNested(ctx, rc)
	if err != nil {
		c.logger.Error(ctx, err, "Could not load navigation", "locale", rc.Locale)
		return header
	}
	header.Links = NavLinks(nodes)
	return header
}

// NavLinks returns the menu-visible top-level nodes as links, with /home
// mapped to the site root.
func NavLinks(nodes []*cms.SitemapNode) []Link {
	links := make([]Link, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || !n.Visible.Menu {
			continue
		}
		title := n.MenuText
		if title == "" {
			title = n.Title
		}
		path := n.Path
		if strings.EqualFold(path, "/home") {
			path = "/"
		}
		links = append(links, Link{Title: title, Path: path})
	}
	return links
}
