package site

import (
	"mime"
	"path"
	"sort"
	"strings"
	"time"
)

// Asset is a single file in the site tree.
//
// Paths are slash-separated and relative to the inventory root, so they can
// be joined directly onto a base URL when building check targets.
type Asset struct {
	// Path is the slash-separated path relative to the site root.
	Path string `json:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// SHA256 is the lowercase hex digest of the file contents.
	SHA256 string `json:"sha256"`

	// ContentType is the detected MIME type (by extension).
	ContentType string `json:"content_type"`

	// Symlink reports whether the entry is a symbolic link.
	Symlink bool `json:"symlink,omitempty"`
}

// Ref is a reference extracted from an HTML page (script src, link href,
// img src, anchor href, and similar).
type Ref struct {
	// Raw is the attribute value exactly as written in the page.
	Raw string `json:"raw"`

	// Path is the site-relative slash path the reference resolves to.
	// Empty for external references.
	Path string `json:"path,omitempty"`

	// External reports whether the reference targets another origin.
	External bool `json:"external,omitempty"`

	// Kind is the referencing construct: "script", "stylesheet", "image",
	// "anchor", or "media".
	Kind string `json:"kind"`
}

// Page is an HTML asset together with its parsed title and references.
type Page struct {
	Asset

	// Title is the text of the page's <title> element, if any.
	Title string `json:"title,omitempty"`

	// Refs are the references extracted from the page, in document order.
	Refs []Ref `json:"refs,omitempty"`
}

// Inventory is the result of scanning a site tree.
//
// An Inventory is immutable after [Scan] returns. Pages and Assets are
// sorted by path; Pages are also present in Assets.
type Inventory struct {
	// Root is the absolute path of the scanned directory.
	Root string `json:"root"`

	// Pages are the HTML documents in the tree.
	Pages []Page `json:"pages"`

	// Assets are all files in the tree, including pages.
	Assets []Asset `json:"assets"`

	// TotalBytes is the sum of all asset sizes.
	TotalBytes int64 `json:"total_bytes"`

	// Hash is the deterministic site hash: sha256 over the sorted
	// "path NUL sha256 LF" lines of every asset. Two trees with identical
	// content produce identical hashes regardless of scan order.
	Hash string `json:"hash"`

	// ScannedAt is when the scan completed.
	ScannedAt time.Time `json:"scanned_at"`
}

// Lookup returns the asset at the given site-relative path.
func (inv *Inventory) Lookup(p string) (Asset, bool) {
	p = path.Clean(p)
	i := sort.Search(len(inv.Assets), func(i int) bool { return inv.Assets[i].Path >= p })
	if i < len(inv.Assets) && inv.Assets[i].Path == p {
		return inv.Assets[i], true
	}
	return Asset{}, false
}

// LookupFold returns the asset matching p case-insensitively. It reports
// whether a case-insensitive match exists that is not an exact match, which
// the audit uses to flag references that break on case-sensitive hosts.
func (inv *Inventory) LookupFold(p string) (Asset, bool) {
	p = path.Clean(p)
	for _, a := range inv.Assets {
		if strings.EqualFold(a.Path, p) {
			return a, true
		}
	}
	return Asset{}, false
}

// Page returns the page at the given site-relative path.
func (inv *Inventory) Page(p string) (Page, bool) {
	p = path.Clean(p)
	for _, pg := range inv.Pages {
		if pg.Path == p {
			return pg, true
		}
	}
	return Page{}, false
}

// IsHTML reports whether the path names an HTML document.
func IsHTML(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == ".html" || ext == ".htm"
}

// IsMarkdown reports whether the path names a markdown document.
func IsMarkdown(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == ".md" || ext == ".markdown"
}

// contentTypes pins MIME types for the extensions static demo sites ship,
// independent of the host OS's mime tables.
var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".htm":   "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".mjs":   "text/javascript; charset=utf-8",
	".json":  "application/json",
	".md":    "text/markdown; charset=utf-8",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".ico":   "image/x-icon",
	".txt":   "text/plain; charset=utf-8",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".wasm":  "application/wasm",
}

// ContentTypeFor returns the MIME type for a site path by extension.
func ContentTypeFor(p string) string {
	ext := strings.ToLower(path.Ext(p))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
