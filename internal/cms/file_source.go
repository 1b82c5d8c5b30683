package cms

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	siteerrors "github.com/conneroisu/sitezone/internal/errors"
)

// FileSource serves a content site from YAML files on disk:
//
//	sitemap.yml        ordered list of sitemap nodes
//	pages/{id}.yml     pages
//	items/{id}.yml     content items
//	lists/{ref}.yml    content lists (a list of items)
//
// Each file may be placed under a {locale}/ directory to override the shared
// copy, and a preview/ directory overlays draft content for preview requests.
// Files are read on every call, so edits show up without a restart.
type FileSource struct {
	dir string
}

var _ Source = (*FileSource)(nil)

// NewFileSource creates a source rooted at dir.
func NewFileSource(dir string) (*FileSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, siteerrors.NewConfigError(siteerrors.ErrCodeConfigInvalid, "content directory is not readable: "+dir)
	}
	if !info.IsDir() {
		return nil, siteerrors.NewConfigError(siteerrors.ErrCodeConfigInvalid, "content path is not a directory: "+dir)
	}
	return &FileSource{dir: dir}, nil
}

// Dir returns the root directory.
func (s *FileSource) Dir() string {
	return s.dir
}

func (s *FileSource) GetContentItem(_ context.Context, req ItemRequest) (*ContentItem, error) {
	var item ContentItem
	rel := filepath.Join("items", strconv.Itoa(req.ContentID)+".yml")
	if err := s.load(req.Locale, req.Preview, rel, &item); err != nil {
		if siteerrors.IsNotFound(err) {
			return nil, siteerrors.ErrContentNotFound(req.ContentID)
		}
		return nil, err
	}
	if item.ContentID == 0 {
		item.ContentID = req.ContentID
	}
	return &item, nil
}

func (s *FileSource) GetContentList(_ context.Context, req ListRequest) (*ContentList, error) {
	var items []ContentItem
	rel := filepath.Join("lists", strings.ToLower(req.ReferenceName)+".yml")
	if err := s.load(req.Locale, req.Preview, rel, &items); err != nil {
		if siteerrors.IsNotFound(err) {
			return &ContentList{}, nil
		}
		return nil, err
	}

	total := len(items)
	start := req.Skip
	if start > total {
		start = total
	}
	end := total
	if req.Take > 0 && start+req.Take < end {
		end = start + req.Take
	}
	return &ContentList{Items: items[start:end], TotalCount: total}, nil
}

func (s *FileSource) GetSitemapFlat(_ context.Context, req SitemapRequest) (*FlatSitemap, error) {
	nodes, err := s.sitemapNodes(req)
	if err != nil {
		return nil, err
	}
	return NewFlatSitemap(nodes), nil
}

func (s *FileSource) GetSitemapNested(_ context.Context, req SitemapRequest) ([]*SitemapNode, error) {
	nodes, err := s.sitemapNodes(req)
	if err != nil {
		return nil, err
	}
	return nestSitemap(nodes), nil
}

func (s *FileSource) GetPage(_ context.Context, req PageRequest) (*Page, error) {
	var page Page
	rel := filepath.Join("pages", strconv.Itoa(req.PageID)+".yml")
	if err := s.load(req.Locale, req.Preview, rel, &page); err != nil {
		if siteerrors.IsNotFound(err) {
			return nil, siteerrors.ErrPageNotFound(req.PageID)
		}
		return nil, err
	}
	if page.PageID == 0 {
		page.PageID = req.PageID
	}
	return &page, nil
}

func (s *FileSource) sitemapNodes(req SitemapRequest) ([]*SitemapNode, error) {
	var nodes []*SitemapNode
	if err := s.load(req.Locale, req.Preview, "sitemap.yml", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// candidates lists the files that may hold rel, most specific first.
func (s *FileSource) candidates(locale string, preview bool, rel string) []string {
	var out []string
	if preview {
		if locale != "" {
			out = append(out, filepath.Join(s.dir, "preview", locale, rel))
		}
		out = append(out, filepath.Join(s.dir, "preview", rel))
	}
	if locale != "" {
		out = append(out, filepath.Join(s.dir, locale, rel))
	}
	return append(out, filepath.Join(s.dir, rel))
}

func (s *FileSource) load(locale string, preview bool, rel string, out interface{}) error {
	for _, path := range s.candidates(locale, preview, rel) {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return siteerrors.NewUpstreamError(siteerrors.ErrCodeUpstreamFailed, "read content file", err).
				WithContext("file", path)
		}
		if err := yaml.Unmarshal(data, out); err != nil {
			return siteerrors.NewUpstreamError(siteerrors.ErrCodeMalformedPayload, "parse content file", err).
				WithContext("file", path)
		}
		return nil
	}
	return siteerrors.NewNotFoundError(siteerrors.ErrCodeContentNotFound, fmt.Sprintf("no content file for %s", rel))
}

// nestSitemap rebuilds the nested form from flat paths: a node is the child
// of the node whose path is its longest proper prefix.
func nestSitemap(flat []*SitemapNode) []*SitemapNode {
	byPath := make(map[string]*SitemapNode, len(flat))
	copies := make([]*SitemapNode, 0, len(flat))
	for _, n := range flat {
		c := *n
		c.Children = nil
		copies = append(copies, &c)
		byPath[strings.ToLower(c.Path)] = &c
	}

	var roots []*SitemapNode
	for _, n := range copies {
		parent := parentPath(strings.ToLower(n.Path))
		var p *SitemapNode
		for parent != "" {
			if candidate, ok := byPath[parent]; ok {
				p = candidate
				break
			}
			parent = parentPath(parent)
		}
		if p == nil {
			roots = append(roots, n)
			continue
		}
		p.Children = append(p.Children, n)
	}

	return roots
}

func parentPath(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return ""
	}
	return path[:i]
}
