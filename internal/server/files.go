package server

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/text/unicode/norm"

	"github.com/pagedeck/pagedeck/internal/site"
)

// reloadScript is injected before </body> on served HTML pages when live
// reload is enabled. It listens on the deck SSE stream and reloads the page
// on the reload event.
const reloadScript = `<script>(function(){var es=new EventSource("/_deck/api/sse");es.addEventListener("reload",function(){location.reload();});})();</script>`

// handleFile serves the site tree at "/", the way a static hosting provider
// would: trailing slashes resolve to index.html, directories redirect to
// their slash form, and a root 404.html (when present) backs unknown paths.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if isPathTraversal(r.URL.Path) {
		s.logger.Warn("path traversal attempt blocked", "path", r.URL.Path, "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if rel == "" || rel == "." || strings.HasSuffix(r.URL.Path, "/") {
		rel = path.Join(rel, "index.html")
	}

	full, err := s.resolve(rel)
	if err != nil {
		if os.IsNotExist(err) {
			s.notFound(w, r)
			return
		}
		if os.IsPermission(err) || err == errOutsideRoot {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		s.logger.Error("failed to resolve site path", "path", rel, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	info, err := os.Stat(full)
	if err != nil {
		s.notFound(w, r)
		return
	}
	if info.IsDir() {
		// hosting providers serve directories only through their slash form
		http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
		return
	}

	if s.cfg.Markdown && site.IsMarkdown(rel) {
		s.serveMarkdown(w, r, full, rel)
		return
	}

	if s.cfg.LiveReload && site.IsHTML(rel) {
		s.serveInjectedHTML(w, r, full)
		return
	}

	// weak ETag from modtime and size, the cheap validator static hosts use
	etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	f, err := os.Open(full)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", site.ContentTypeFor(rel))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// errOutsideRoot marks a resolved path that escapes the site root after
// symlink evaluation.
var errOutsideRoot = fmt.Errorf("path resolves outside site root")

// resolve maps a site-relative slash path to an absolute filesystem path,
// confining the result to the site root even through symlinks.
func (s *Server) resolve(rel string) (string, error) {
	absRoot, err := filepath.Abs(s.cfg.SiteDir)
	if err != nil {
		return "", err
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}

	full := filepath.Join(realRoot, filepath.FromSlash(rel))
	real, err := filepath.EvalSymlinks(full)
	if err != nil {
		return "", err
	}

	relCheck, err := filepath.Rel(realRoot, real)
	if err != nil || relCheck == ".." || strings.HasPrefix(relCheck, ".."+string(filepath.Separator)) {
		return "", errOutsideRoot
	}
	return real, nil
}

// isPathTraversal detects traversal sequences that survive URL encoding or
// unicode normalization tricks. The path is decoded repeatedly until it
// stops changing, then NFC-normalized, and each form is checked.
func isPathTraversal(p string) bool {
	seen := map[string]bool{}
	cur := p
	for i := 0; i < 5; i++ {
		if containsTraversal(cur) {
			return true
		}
		if seen[cur] {
			break
		}
		seen[cur] = true
		dec, err := url.PathUnescape(cur)
		if err != nil || dec == cur {
			break
		}
		cur = dec
	}
	return containsTraversal(norm.NFC.String(cur))
}

func containsTraversal(p string) bool {
	if strings.ContainsRune(p, 0) {
		return true
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	// backslash separators never appear in legitimate site URLs
	return strings.Contains(p, `\..`) || strings.Contains(p, `..\`)
}

// etagMatches reports whether the If-None-Match header value matches the
// ETag, handling the comma-separated multi-value form and the * wildcard.
func etagMatches(header, etag string) bool {
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		if strings.TrimSpace(candidate) == etag {
			return true
		}
	}
	return false
}

// notFound serves the site's own 404.html when one exists, matching the
// hosting provider's behavior, and falls back to a plain 404 otherwise.
func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	custom := filepath.Join(s.cfg.SiteDir, "404.html")
	content, err := os.ReadFile(custom)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		_, _ = w.Write(content)
	}
}

// serveInjectedHTML serves an HTML file with the live-reload script injected
// before the closing body tag. Injected responses skip ETag handling; the
// page must reflect the current reload wiring, not a cached copy.
func (s *Server) serveInjectedHTML(w http.ResponseWriter, r *http.Request, full string) {
	content, err := os.ReadFile(full)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(injectReload(content)); err != nil {
		s.logger.Error("failed to write page response", "error", err)
	}
}

// injectReload inserts the reload script before </body>, or appends it when
// the page has no body close tag.
func injectReload(content []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(content), []byte("</body>"))
	if idx < 0 {
		return append(content, []byte(reloadScript)...)
	}
	out := make([]byte, 0, len(content)+len(reloadScript))
	out = append(out, content[:idx]...)
	out = append(out, []byte(reloadScript)...)
	out = append(out, content[idx:]...)
	return out
}

// markdownShell wraps rendered markdown in a minimal page so it previews
// the way a Pages-style host would render it.
const markdownShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>body{max-width:48rem;margin:2rem auto;padding:0 1rem;font-family:system-ui,sans-serif;line-height:1.6}pre{background:#f4f4f4;padding:1rem;overflow-x:auto}code{font-family:ui-monospace,monospace}</style>
</head>
<body>
%s
</body>
</html>
`

// serveMarkdown renders a markdown file to HTML for the preview.
func (s *Server) serveMarkdown(w http.ResponseWriter, r *http.Request, full, rel string) {
	src, err := os.ReadFile(full)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var body bytes.Buffer
	if err := goldmark.New().Convert(src, &body); err != nil {
		s.logger.Error("markdown render failed", "path", rel, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	page := []byte(fmt.Sprintf(markdownShell, path.Base(rel), body.String()))
	if s.cfg.LiveReload {
		page = injectReload(page)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(page); err != nil {
		s.logger.Error("failed to write page response", "error", err)
	}
}
