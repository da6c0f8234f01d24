package site

import (
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
)

// refAttrs maps element names to the attribute carrying a reference and the
// reference kind recorded on [Ref].
var refAttrs = map[string]struct{ attr, kind string }{
	"script": {"src", "script"},
	"img":    {"src", "image"},
	"a":      {"href", "anchor"},
	"source": {"src", "media"},
	"iframe": {"src", "media"},
	"video":  {"src", "media"},
	"audio":  {"src", "media"},
	"embed":  {"src", "media"},
	"object": {"data", "media"},
}

// extractRefs tokenizes an HTML document and returns its title and the
// references it makes, in document order. pagePath is the document's own
// site-relative path, used to resolve relative references.
//
// The tokenizer never fails on malformed markup; a page that cannot be
// parsed meaningfully simply yields no references.
func extractRefs(r io.Reader, pagePath string) (title string, refs []Ref) {
	z := html.NewTokenizer(r)
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return title, refs

		case html.TextToken:
			if inTitle {
				title = strings.TrimSpace(string(z.Text()))
				inTitle = false
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			if tag == "title" {
				inTitle = true
				continue
			}
			if !hasAttr {
				continue
			}
			spec, tracked := refAttrs[tag]
			if !tracked && tag != "link" {
				continue
			}
			var raw, rel string
			for {
				k, v, more := z.TagAttr()
				switch string(k) {
				case "href":
					if tag == "link" || spec.attr == "href" {
						raw = string(v)
					}
				case spec.attr:
					raw = string(v)
				case "rel":
					rel = string(v)
				case "poster":
					// <video poster=...> loads like an image.
					if tag == "video" && raw == "" {
						raw = string(v)
					}
				}
				if !more {
					break
				}
			}
			if raw == "" {
				continue
			}
			kind := spec.kind
			if tag == "link" {
				kind = "stylesheet"
				if rel != "" && !strings.Contains(strings.ToLower(rel), "stylesheet") {
					// Icons, preloads, manifests: still assets worth checking.
					kind = "media"
				}
			}
			if ref, ok := resolveRef(raw, pagePath, kind); ok {
				refs = append(refs, ref)
			}

		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				inTitle = false
			}
		}
	}
}

// resolveRef classifies a raw attribute value and resolves local references
// against the page's directory. Fragment-only, data:, mailto:, javascript:,
// and tel: references are not assets and are dropped.
func resolveRef(raw, pagePath, kind string) (Ref, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Ref{}, false
	}
	lower := strings.ToLower(trimmed)
	for _, scheme := range []string{"data:", "mailto:", "javascript:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return Ref{}, false
		}
	}
	if strings.HasPrefix(trimmed, "//") {
		return Ref{Raw: raw, External: true, Kind: kind}, true
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		// Unparseable references are kept raw so the audit can flag them.
		return Ref{Raw: raw, Kind: kind}, true
	}
	if u.Scheme != "" {
		return Ref{Raw: raw, External: true, Kind: kind}, true
	}

	p := u.Path
	if p == "" {
		return Ref{}, false
	}
	if strings.HasPrefix(p, "/") {
		// Root-relative: resolved against the site root. On project-style
		// hosting the site often lives under a subpath, which the audit
		// flags separately; here it simply maps to the tree root.
		p = strings.TrimPrefix(p, "/")
	} else {
		p = path.Join(path.Dir(pagePath), p)
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		// Escapes the tree; leave Path empty and let the audit report it.
		return Ref{Raw: raw, Kind: kind}, true
	}
	if strings.HasSuffix(u.Path, "/") {
		p = path.Join(p, "index.html")
	}
	return Ref{Raw: raw, Path: p, Kind: kind}, true
}
