// Package cms defines the content model served by the headless CMS and the
// Source boundary the rest of the site fetches it through.
package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Source is the external content API. Every request carries the locale and
// whether draft (preview) content is wanted.
type Source interface {
	GetContentItem(ctx context.Context, req ItemRequest) (*ContentItem, error)
	GetContentList(ctx context.Context, req ListRequest) (*ContentList, error)
	GetSitemapFlat(ctx context.Context, req SitemapRequest) (*FlatSitemap, error)
	GetSitemapNested(ctx context.Context, req SitemapRequest) ([]*SitemapNode, error)
	GetPage(ctx context.Context, req PageRequest) (*Page, error)
}

type ItemRequest struct {
	ContentID        int
	Locale           string
	Preview          bool
	ContentLinkDepth int
}

type ListRequest struct {
	ReferenceName    string
	Locale           string
	Preview          bool
	Take             int
	Skip             int
	ContentLinkDepth int
}

type SitemapRequest struct {
	Channel string
	Locale  string
	Preview bool
}

type PageRequest struct {
	PageID           int
	Locale           string
	Preview          bool
	ContentLinkDepth int
}

// Visible controls where a sitemap node appears.
type Visible struct {
	Menu    bool `json:"menu" yaml:"menu"`
	Sitemap bool `json:"sitemap" yaml:"sitemap"`
}

type RedirectURL struct {
	URL    string `json:"url" yaml:"url"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// SitemapNode is one routable entry of the CMS sitemap. ContentID > 0 marks a
// dynamic node whose page is driven by a content item.
type SitemapNode struct {
	Path      string         `json:"path" yaml:"path"`
	Title     string         `json:"title" yaml:"title"`
	Name      string         `json:"name" yaml:"name"`
	MenuText  string         `json:"menuText,omitempty" yaml:"menuText,omitempty"`
	PageID    int            `json:"pageID" yaml:"pageID"`
	ContentID int            `json:"contentID,omitempty" yaml:"contentID,omitempty"`
	IsFolder  bool           `json:"isFolder,omitempty" yaml:"isFolder,omitempty"`
	Visible   Visible        `json:"visible" yaml:"visible"`
	Redirect  *RedirectURL   `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	Children  []*SitemapNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsDynamic reports whether the node renders a content item.
func (n *SitemapNode) IsDynamic() bool {
	return n.ContentID > 0
}

// FlatSitemap is the path-keyed sitemap in the order the CMS returned it.
// The first node is the home page.
type FlatSitemap struct {
	nodes  []*SitemapNode
	byPath map[string]*SitemapNode
}

// NewFlatSitemap indexes nodes by lowercased path, keeping their order.
func NewFlatSitemap(nodes []*SitemapNode) *FlatSitemap {
	fs := &FlatSitemap{
		nodes:  make([]*SitemapNode, 0, len(nodes)),
		byPath: make(map[string]*SitemapNode, len(nodes)),
	}
	for _, n := range nodes {
		if n == nil {
			continue
		}
		key := strings.ToLower(n.Path)
		if _, dup := fs.byPath[key]; dup {
			continue
		}
		fs.nodes = append(fs.nodes, n)
		fs.byPath[key] = n
	}
	return fs
}

// Len returns the number of nodes.
func (fs *FlatSitemap) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.nodes)
}

// Nodes returns the nodes in sitemap order.
func (fs *FlatSitemap) Nodes() []*SitemapNode {
	if fs == nil {
		return nil
	}
	out := make([]*SitemapNode, len(fs.nodes))
	copy(out, fs.nodes)
	return out
}

// Home returns the first node, or nil for an empty sitemap.
func (fs *FlatSitemap) Home() *SitemapNode {
	if fs.Len() == 0 {
		return nil
	}
	return fs.nodes[0]
}

// Lookup finds a node by path, case-insensitively.
func (fs *FlatSitemap) Lookup(path string) (*SitemapNode, bool) {
	if fs == nil {
		return nil, false
	}
	n, ok := fs.byPath[strings.ToLower(path)]
	return n, ok
}

// ByContentID returns the first node in sitemap order whose ContentID is id.
func (fs *FlatSitemap) ByContentID(id int) (*SitemapNode, bool) {
	if fs == nil || id <= 0 {
		return nil, false
	}
	for _, n := range fs.nodes {
		if n.ContentID == id {
			return n, true
		}
	}
	return nil, false
}

// UnmarshalJSON decodes the CMS object form {"/path": node, ...} token by
// token so the key order survives.
func (fs *FlatSitemap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*fs = *NewFlatSitemap(nil)
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("flat sitemap: expected object, got %v", tok)
	}

	var nodes []*SitemapNode
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("flat sitemap: expected string key, got %v", keyTok)
		}

		var node SitemapNode
		if err := dec.Decode(&node); err != nil {
			return fmt.Errorf("flat sitemap node %q: %w", key, err)
		}
		if node.Path == "" {
			node.Path = key
		}
		nodes = append(nodes, &node)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*fs = *NewFlatSitemap(nodes)
	return nil
}

// MarshalJSON writes the object form back in sitemap order.
func (fs *FlatSitemap) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range fs.Nodes() {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(n.Path)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// ContentItemProperties is the CMS bookkeeping attached to every item.
type ContentItemProperties struct {
	State          int    `json:"state" yaml:"state"`
	Modified       string `json:"modified" yaml:"modified"`
	VersionID      int    `json:"versionID" yaml:"versionID"`
	ReferenceName  string `json:"referenceName" yaml:"referenceName"`
	DefinitionName string `json:"definitionName" yaml:"definitionName"`
	ItemOrder      int    `json:"itemOrder" yaml:"itemOrder"`
}

// ContentItem is a CMS content item. An item fetched with contentLinkDepth 0
// may be a bare reference carrying only its ContentID.
type ContentItem struct {
	ContentID  int                    `json:"contentID" yaml:"contentID"`
	Properties ContentItemProperties  `json:"properties" yaml:"properties"`
	Fields     map[string]interface{} `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// IsReference reports whether the item is an unhydrated content link.
func (c *ContentItem) IsReference() bool {
	return c.ContentID > 0 && len(c.Fields) == 0 && c.Properties.DefinitionName == ""
}

// String returns a field as a string, or "" when absent or not a string.
func (c *ContentItem) String(field string) string {
	if v, ok := c.Fields[field].(string); ok {
		return v
	}
	return ""
}

// DecodeFields converts an item's loosely typed fields into T.
func DecodeFields[T any](item *ContentItem) (T, error) {
	var out T
	if item == nil || len(item.Fields) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(item.Fields)
	if err != nil {
		return out, fmt.Errorf("marshal fields of item %d: %w", item.ContentID, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode fields of item %d: %w", item.ContentID, err)
	}
	return out, nil
}

type ContentList struct {
	Items      []ContentItem `json:"items" yaml:"items"`
	TotalCount int           `json:"totalCount" yaml:"totalCount"`
}

// ImageField is the CMS attachment shape.
type ImageField struct {
	Label  string `json:"label" yaml:"label"`
	URL    string `json:"url" yaml:"url"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty"`
	Width  int    `json:"width,omitempty" yaml:"width,omitempty"`
}

// URLField is the CMS link shape.
type URLField struct {
	Href   string `json:"href" yaml:"href"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	Text   string `json:"text,omitempty" yaml:"text,omitempty"`
}

// ZoneModule is one module placed in a page zone.
type ZoneModule struct {
	Module     string                 `json:"module" yaml:"module"`
	Item       ContentItem            `json:"item" yaml:"item"`
	CustomData map[string]interface{} `json:"customData,omitempty" yaml:"customData,omitempty"`
}

// TypeName is the component key the module resolves through: the module
// name, or the item's definition name when the module name is empty.
func (m *ZoneModule) TypeName() string {
	if m.Module != "" {
		return m.Module
	}
	return m.Item.Properties.DefinitionName
}

type SEO struct {
	MetaDescription string `json:"metaDescription,omitempty" yaml:"metaDescription,omitempty"`
	MetaKeywords    string `json:"metaKeywords,omitempty" yaml:"metaKeywords,omitempty"`
	MetaHTML        string `json:"metaHTML,omitempty" yaml:"metaHTML,omitempty"`
	SitemapVisible  bool   `json:"sitemapVisible,omitempty" yaml:"sitemapVisible,omitempty"`
}

// DynamicPageSettings describes how a dynamic page maps to a content list.
type DynamicPageSettings struct {
	ReferenceName string `json:"referenceName" yaml:"referenceName"`
	FieldName     string `json:"fieldName" yaml:"fieldName"`
}

// Page is a CMS page: a template plus zones of placed modules.
type Page struct {
	PageID       int                     `json:"pageID" yaml:"pageID"`
	Name         string                  `json:"name" yaml:"name"`
	Path         string                  `json:"path,omitempty" yaml:"path,omitempty"`
	Title        string                  `json:"title" yaml:"title"`
	MenuText     string                  `json:"menuText,omitempty" yaml:"menuText,omitempty"`
	PageType     string                  `json:"pageType,omitempty" yaml:"pageType,omitempty"`
	TemplateName string                  `json:"templateName" yaml:"templateName"`
	Zones        map[string][]ZoneModule `json:"zones" yaml:"zones"`
	SEO          SEO                     `json:"seo" yaml:"seo"`
	Dynamic      *DynamicPageSettings    `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
	RedirectURL  string                  `json:"redirectUrl,omitempty" yaml:"redirectUrl,omitempty"`
}
