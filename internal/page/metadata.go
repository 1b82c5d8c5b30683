package page

import (
	"strings"

	"github.com/conneroisu/sitezone/internal/cms"
	"github.com/conneroisu/sitezone/internal/content"
	"github.com/conneroisu/sitezone/internal/htmltext"
)

// Metadata is what goes into the document head.
type Metadata struct {
	Title       string
	Description string
	Keywords    string
	OGImages    []string
	Head        []htmltext.HeadElement
}

// PostDefinitionName is the content definition whose dynamic pages carry
// an Open Graph image.
const PostDefinitionName = "Post"

// BuildMetadata derives head metadata from assembled props. header may be
// nil, in which case the title carries no site name.
func BuildMetadata(props *Props, header *content.Header) Metadata {
	var md Metadata
	if props == nil || props.NotFound {
		md.Title = "Page Not Found"
		if header != nil && header.SiteName != "" {
			md.Title += " | " + header.SiteName
		}
		return md
	}

	title := ""
	if props.SitemapNode != nil {
		title = props.SitemapNode.Title
	}
	if title == "" && props.Page != nil {
		title = props.Page.Title
	}
	if header != nil && header.SiteName != "" {
		if title == "" {
			title = header.SiteName
		} else {
			title += " | " + header.SiteName
		}
	}
	md.Title = title

	if props.Page != nil {
		md.Description = props.Page.SEO.MetaDescription
		md.Keywords = props.Page.SEO.MetaKeywords
		md.Head = htmltext.ParseHeadMarkup(props.Page.SEO.MetaHTML)
	}

	if img := postImage(props.DynamicPageItem); img != "" {
		md.OGImages = append(md.OGImages, img)
	}
	return md
}

func postImage(item *cms.ContentItem) string {
	if item == nil || !strings.EqualFold(item.Properties.DefinitionName, PostDefinitionName) {
		return ""
	}
	fields, err := cms.DecodeFields[content.PostFields](item)
	if err != nil || fields.Image.URL == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(fields.Image.URL, "?") {
		sep = "&"
	}
	return fields.Image.URL + sep + "format=auto&w=1200"
}
