package components

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/conneroisu/sitezone/internal/cms"
	"github.com/conneroisu/sitezone/internal/content"
	"github.com/conneroisu/sitezone/internal/htmltext"
)

const (
	excerptLength   = 200
	postsFirstPage  = 10
	blogPathPrefix  = "/blog/"
	primaryBtnClass = "btn btn-primary"
)

// RichTextArea outputs the textblob field as trusted CMS HTML.
var RichTextArea = NewRenderer(KindRichTextArea, func(_ context.Context, p Props) (templ.Component, error) {
	item := p.Module.Item
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		h.raw(`<div class="rich-text prose"`)
		h.attr("data-content-id", strconv.Itoa(item.ContentID))
		h.raw(">")
		h.component(ctx, templ.Raw(item.String("textblob")))
		h.raw("</div>\n")
		return h.err
	}), nil
})

// Heading outputs the title field.
var Heading = NewRenderer(KindHeading, func(_ context.Context, p Props) (templ.Component, error) {
	item := p.Module.Item
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		h.raw(`<div class="heading"`)
		h.attr("data-content-id", strconv.Itoa(item.ContentID))
		h.raw("><h1>")
		h.text(item.String("title"))
		h.raw("</h1></div>\n")
		return h.err
	}), nil
})

type featuredPostFields struct {
	FeaturedPost *cms.ContentItem `json:"featuredPost"`
}

// FeaturedPost shows one linked post with an excerpt. It renders nothing
// when no post is linked.
var FeaturedPost = NewRenderer(KindFeaturedPost, func(_ context.Context, p Props) (templ.Component, error) {
	fields, err := cms.DecodeFields[featuredPostFields](&p.Module.Item)
	if err != nil {
		return nil, err
	}
	if fields.FeaturedPost == nil {
		return templ.NopComponent, nil
	}
	post, err := cms.DecodeFields[content.PostFields](fields.FeaturedPost)
	if err != nil {
		return nil, err
	}

	href := blogPathPrefix + post.Slug
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		h.raw(`<section class="featured-post"`)
		h.attr("data-content-id", strconv.Itoa(fields.FeaturedPost.ContentID))
		h.raw(`><a`)
		h.urlAttr("href", href)
		h.raw(`><img`)
		h.urlAttr("src", imageSrc(post.Image.URL, 800))
		h.attr("alt", post.Image.Label)
		h.raw(` loading="eager"></a><div class="featured-post-body"><div class="category">`)
		h.text(post.CategoryTitle())
		h.raw(`</div><div class="date">`)
		h.text(content.FormatPostDate(post.Date))
		h.raw(`</div><h2><a`)
		h.urlAttr("href", href)
		h.raw(">")
		h.text(post.Title)
		h.raw(`</a></h2><p class="excerpt">`)
		h.text(htmltext.Excerpt(post.Content, excerptLength))
		h.raw(`</p><a class="read-more"`)
		h.urlAttr("href", href)
		h.raw(">Read More</a></div></section>\n")
		return h.err
	}), nil
})

type postsListingFields struct {
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	PreHeader string `json:"preHeader"`
}

// PostsListing shows the first page of posts and a button that pages
// through the rest with /api/get-post-listing.
var PostsListing = NewRenderer(KindPostsListing, func(ctx context.Context, p Props) (templ.Component, error) {
	fields, err := cms.DecodeFields[postsListingFields](&p.Module.Item)
	if err != nil {
		return nil, err
	}
	var posts []content.PostSummary
	if p.Content != nil {
		posts, err = p.Content.GetPostListing(ctx, p.Context(), 0, postsFirstPage)
		if err != nil {
			return nil, err
		}
	}
	rc := p.Context()

	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		h.raw(`<section class="posts-listing"`)
		h.attr("data-content-id", strconv.Itoa(p.Module.Item.ContentID))
		h.raw(">")
		if fields.PreHeader != "" {
			h.raw(`<div class="pre-header">`)
			h.text(fields.PreHeader)
			h.raw("</div>")
		}
		if fields.Title != "" {
			h.raw("<h2>")
			h.text(fields.Title)
			h.raw("</h2>")
		}
		if fields.Subtitle != "" {
			h.raw(`<p class="subtitle">`)
			h.text(fields.Subtitle)
			h.raw("</p>")
		}
		if len(posts) == 0 {
			h.raw(`<p class="empty">No posts available.</p></section>` + "\n")
			return h.err
		}

		h.raw(`<ul class="posts" data-posts`)
		h.attr("data-locale", rc.Locale)
		h.attr("data-sitemap", rc.Sitemap)
		h.attr("data-next-skip", strconv.Itoa(len(posts)))
		h.attr("data-take", strconv.Itoa(postsFirstPage))
		h.raw(">")
		for _, post := range posts {
			writePostCard(h, post)
		}
		h.raw("</ul>")
		if len(posts) == postsFirstPage {
			h.raw(`<button type="button" class="load-more" data-load-more>Load more</button>`)
			h.raw(loadMoreScript)
		}
		h.raw("</section>\n")
		return h.err
	}), nil
})

func writePostCard(h *htmlWriter, post content.PostSummary) {
	h.raw(`<li class="post-card"`)
	h.attr("data-content-id", strconv.Itoa(post.ContentID))
	h.raw("><a")
	h.urlAttr("href", post.URL)
	h.raw("><img")
	h.urlAttr("src", imageSrc(post.Image.URL, 600))
	h.attr("alt", post.Image.Label)
	h.raw(` loading="lazy"><div class="category">`)
	h.text(post.Category)
	h.raw(`</div><div class="date">`)
	h.text(post.Date)
	h.raw("</div><h3>")
	h.text(post.Title)
	h.raw("</h3></a></li>")
}

const loadMoreScript = `<script>
(function () {
  var list = document.currentScript.parentNode.querySelector("[data-posts]");
  var button = document.currentScript.parentNode.querySelector("[data-load-more]");
  if (!list || !button) return;
  button.addEventListener("click", function () {
    var skip = Number(list.dataset.nextSkip), take = Number(list.dataset.take);
    var q = new URLSearchParams({locale: list.dataset.locale, sitemap: list.dataset.sitemap, skip: String(skip), take: String(take)});
    fetch("/api/get-post-listing?" + q).then(function (r) { return r.json(); }).then(function (posts) {
      posts.forEach(function (p) {
        var li = document.createElement("li");
        li.className = "post-card";
        var a = document.createElement("a");
        a.href = p.url;
        var h = document.createElement("h3");
        h.textContent = p.title;
        a.appendChild(h);
        li.appendChild(a);
        list.appendChild(li);
      });
      list.dataset.nextSkip = String(skip + posts.length);
      if (posts.length < take) button.remove();
    });
  });
})();
</script>`

// PostDetails renders the dynamic page item of a post page.
var PostDetails = NewRenderer(KindPostDetails, func(_ context.Context, p Props) (templ.Component, error) {
	var item *cms.ContentItem
	if p.Page != nil {
		item = p.Page.DynamicPageItem
	}
	if item == nil {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			_, err := io.WriteString(w, "<div class=\"post-details\">Post not found</div>\n")
			return err
		}), nil
	}
	post, err := cms.DecodeFields[content.PostFields](item)
	if err != nil {
		return nil, err
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		h.raw(`<article class="post-details"`)
		h.attr("data-content-id", strconv.Itoa(item.ContentID))
		h.raw("><img")
		h.urlAttr("src", imageSrc(post.Image.URL, 1200))
		h.attr("alt", post.Image.Label)
		h.raw(`><div class="category">`)
		h.text(post.CategoryTitle())
		h.raw(`</div><div class="date">`)
		h.text(content.FormatPostDate(post.Date))
		h.raw("</div><h1>")
		h.text(post.Title)
		h.raw(`</h1><div class="prose">`)
		h.component(ctx, templ.Raw(post.Content))
		h.raw("</div></article>\n")
		return h.err
	}), nil
})

type textBlockFields struct {
	Title         string         `json:"title"`
	Content       string         `json:"content"`
	Tagline       string         `json:"tagline"`
	ImagePosition string         `json:"imagePosition"`
	Image         cms.ImageField `json:"image"`
	PrimaryButton *cms.URLField  `json:"primaryButton"`
}

// TextBlockWithImage places text beside an image, on the side chosen by the
// imagePosition field.
var TextBlockWithImage = NewRenderer(KindTextBlockWithImage, func(_ context.Context, p Props) (templ.Component, error) {
	fields, err := cms.DecodeFields[textBlockFields](&p.Module.Item)
	if err != nil {
		return nil, err
	}

	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := newHTMLWriter(w)
		class := "text-block image-left"
		if fields.ImagePosition == "right" {
			class = "text-block image-right"
		}
		h.raw("<section")
		h.attr("class", class)
		h.attr("data-content-id", strconv.Itoa(p.Module.Item.ContentID))
		h.raw(`><div class="text-block-image">`)
		if fields.PrimaryButton != nil && fields.PrimaryButton.Href != "" {
			h.raw("<a")
			h.urlAttr("href", fields.PrimaryButton.Href)
			h.raw(">")
		}
		h.raw("<img")
		h.urlAttr("src", imageSrc(fields.Image.URL, 800))
		h.attr("alt", fields.Image.Label)
		h.raw(">")
		if fields.PrimaryButton != nil && fields.PrimaryButton.Href != "" {
			h.raw("</a>")
		}
		h.raw(`</div><div class="text-block-body">`)
		if fields.Tagline != "" {
			h.raw(`<div class="tagline">`)
			h.text(fields.Tagline)
			h.raw("</div>")
		}
		h.raw("<h2>")
		h.text(fields.Title)
		h.raw("</h2><p>")
		h.text(fields.Content)
		h.raw("</p>")
		if b := fields.PrimaryButton; b != nil && b.Href != "" {
			h.raw("<a")
			h.attr("class", primaryBtnClass)
			h.urlAttr("href", b.Href)
			h.attr("title", b.Text)
			if b.Target != "" {
				h.attr("target", b.Target)
			}
			if isAbsoluteURL(b.Href) {
				h.raw(` rel="noopener"`)
			}
			h.raw(">")
			h.text(b.Text)
			h.raw("</a>")
		}
		h.raw("</div></section>\n")
		return h.err
	}), nil
})
