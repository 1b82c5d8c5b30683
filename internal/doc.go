// Package internal contains the implementation packages of the sitezone
// site server.
//
// # Package Organization
//
// Request path, outermost first:
//
//   - http: route table and http.Server lifecycle
//   - middleware: recovery, request logging, metrics, security headers, CORS
//   - server: handlers and the wiring of everything below
//   - requestctx: per-request locale, sitemap channel and preview flag
//   - page: resolves a path to a page with hydrated zones, memoized per request
//   - sitemap: path and content ID resolution against the flat sitemap
//   - content: cached CMS access with tag-based invalidation
//   - cms: the fetch API client and the file-backed content source
//   - cache: in-memory LRU and Redis tag-indexed stores
//   - registry, components, renderer: module lookup and HTML output
//
// Side channels:
//
//   - preview: signed preview keys and the draft cookie
//   - revalidate: CMS webhook to cache tags
//   - watcher: content directory changes to cache flushes
//   - livereload: websocket reload broadcasts to preview browsers
//
// Shared support: config, errors, logging, metrics, validation, version
// and htmltext.
//
// # Inter-Package Communication
//
// Lower layers never import higher ones. Where a lower package has to call
// upward it declares a small interface instead, for example
// requestctx.DraftChecker (satisfied by preview.Machine) and
// revalidate.Notifier (satisfied by livereload.Hub).
//
// # Caching
//
// Live CMS fetches are cached under tags derived from locale, reference
// name, content ID and page ID. Preview fetches never read or write the
// shared cache. Within one request, page.Memo collapses repeated fetches.
package internal
