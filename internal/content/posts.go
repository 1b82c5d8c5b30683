package content

import (
	"context"
	"strings"
	"time"

	"github.com/conneroisu/sitezone/internal/cms"
	"github.com/conneroisu/sitezone/internal/requestctx"
)

const (
	// PostsReferenceName is the content list holding blog posts.
	PostsReferenceName = "posts"

	// PostDateLayout is how post dates are shown.
	PostDateLayout = "Jan. 02, 2006"

	uncategorized = "Uncategorized"
)

// PostFields is the field shape of a Post content item.
type PostFields struct {
	Title    string           `json:"title"`
	Slug     string           `json:"slug"`
	Date     string           `json:"date"`
	Content  string           `json:"content"`
	Category *cms.ContentItem `json:"category,omitempty"`
	Image    cms.ImageField   `json:"image"`
}

// CategoryTitle returns the category title, or "Uncategorized".
func (p PostFields) CategoryTitle() string {
	if p.Category != nil {
		if t := p.Category.String("title"); t != "" {
			return t
		}
	}
	return uncategorized
}

// PostSummary is the minimal post record used by listings.
type PostSummary struct {
	ContentID int            `json:"contentID"`
	Title     string         `json:"title"`
	Date      string         `json:"date"`
	URL       string         `json:"url"`
	Category  string         `json:"category"`
	Image     cms.ImageField `json:"image"`
}

var postDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999",
	"2006-01-02",
}

// FormatPostDate renders a CMS date as "Mar. 05, 2024". Unparseable input is
// returned unchanged.
func FormatPostDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range postDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(PostDateLayout)
		}
	}
	return raw
}

// GetPostListing returns a page of posts with their canonical URLs. A post
// with no sitemap entry gets the URL "#".
func (c *Client) GetPostListing(ctx context.Context, rc requestctx.Context, skip, take int) ([]PostSummary, error) {
	sitemap, err := c.GetSitemapFlat(ctx, rc)
	if err != nil {
		return nil, err
	}

	list, err := c.GetContentList(ctx, rc, cms.ListRequest{
		ReferenceName:    PostsReferenceName,
		Skip:             skip,
		Take:             take,
		ContentLinkDepth: 2,
	})
	if err != nil {
		return nil, err
	}

	posts := make([]PostSummary, 0, len(list.Items))
	for i := range list.Items {
		item := &list.Items[i]
		fields, err := cms.DecodeFields[PostFields](item)
		if err != nil {
			c.logger.Warn(ctx, err, "Skipping undecodable post", "contentID", item.ContentID)
			continue
		}

		url := "#"
		if node, ok := sitemap.ByContentID(item.ContentID); ok {
			url = node.Path
		}

		posts = append(posts, PostSummary{
			ContentID: item.ContentID,
			Title:     fields.Title,
			Date:      FormatPostDate(fields.Date),
			URL:       url,
			Category:  fields.CategoryTitle(),
			Image:     fields.Image,
		})
	}
	return posts, nil
}
