package cache

import (
	"strconv"
	"strings"
)

// Tag kinds, used to label invalidation metrics.
const (
	TagKindContent = "content"
	TagKindPage    = "page"
	TagKindSitemap = "sitemap"
)

// ContentRefTag tags a content list by reference name. Reference names are
// case-insensitive in the CMS, so the tag is lowercased.
func ContentRefTag(referenceName, locale string) string {
	return "content-" + strings.ToLower(referenceName) + "-" + locale
}

// ContentIDTag tags a single content item.
func ContentIDTag(contentID int, locale string) string {
	return "content-" + strconv.Itoa(contentID) + "-" + locale
}

// PageTag tags a page fetch.
func PageTag(pageID int, locale string) string {
	return "page-" + strconv.Itoa(pageID) + "-" + locale
}

func SitemapFlatTag(locale string) string {
	return "sitemap-flat-" + locale
}

func SitemapNestedTag(locale string) string {
	return "sitemap-nested-" + locale
}

// TagKind returns the kind prefix of a tag.
func TagKind(tag string) string {
	switch {
	case strings.HasPrefix(tag, "content-"):
		return TagKindContent
	case strings.HasPrefix(tag, "page-"):
		return TagKindPage
	case strings.HasPrefix(tag, "sitemap-"):
		return TagKindSitemap
	default:
		return "other"
	}
}
