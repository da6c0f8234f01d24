package site

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// hashConcurrency bounds the number of files hashed in parallel.
var hashConcurrency = min(8, runtime.NumCPU())

// skipDirs are directory names excluded from scans. They hold VCS or tool
// state, never published site content.
var skipDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

// Scan walks dir and builds an [Inventory].
//
// Files are hashed concurrently with bounded parallelism. HTML documents are
// additionally parsed for their title and references. Symbolic links are
// recorded but never followed into directories, so a link cannot pull
// content from outside the tree into the inventory.
//
// The tool's own manifest file ([ManifestName]) is excluded: it is publish
// output, and including it would make the site hash depend on itself.
//
// Scan returns an error for a missing or empty directory, or if any file
// cannot be read.
func Scan(ctx context.Context, dir string) (*Inventory, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve site dir: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat site dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site dir %s is not a directory", dir)
	}

	var rels []string
	symlinks := make(map[string]bool)
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ManifestName {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			// Only keep links that resolve to regular files; a dangling
			// link would fail the hash pass with a confusing error.
			target, err := os.Stat(p)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
			symlinks[rel] = true
		} else if !d.Type().IsRegular() {
			return nil
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk site dir: %w", err)
	}
	if len(rels) == 0 {
		return nil, fmt.Errorf("site dir %s contains no files", dir)
	}
	sort.Strings(rels)

	assets := make([]Asset, len(rels))
	pages := make(map[int]Page)
	var pageMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(hashConcurrency)
	for i, rel := range rels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, body, err := readAsset(root, rel)
			if err != nil {
				return err
			}
			a.Symlink = symlinks[rel]
			assets[i] = a
			if IsHTML(rel) {
				pg := Page{Asset: a}
				pg.Title, pg.Refs = extractRefs(bytes.NewReader(body), rel)
				pageMu.Lock()
				pages[i] = pg
				pageMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	inv := &Inventory{
		Root:      root,
		Assets:    assets,
		ScannedAt: time.Now(),
	}
	for i := range assets {
		inv.TotalBytes += assets[i].Size
		if pg, ok := pages[i]; ok {
			inv.Pages = append(inv.Pages, pg)
		}
	}
	inv.Hash = siteHash(assets)
	return inv, nil
}

// readAsset hashes a single file and returns its metadata plus, for HTML
// documents, the raw body for reference extraction.
func readAsset(root, rel string) (Asset, []byte, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	f, err := os.Open(full)
	if err != nil {
		return Asset{}, nil, fmt.Errorf("open %s: %w", rel, err)
	}
	defer f.Close()

	h := sha256.New()
	var body []byte
	var size int64
	if IsHTML(rel) {
		body, err = io.ReadAll(io.TeeReader(f, h))
		if err != nil {
			return Asset{}, nil, fmt.Errorf("read %s: %w", rel, err)
		}
		size = int64(len(body))
	} else {
		size, err = io.Copy(h, f)
		if err != nil {
			return Asset{}, nil, fmt.Errorf("read %s: %w", rel, err)
		}
	}

	return Asset{
		Path:        rel,
		Size:        size,
		SHA256:      hex.EncodeToString(h.Sum(nil)),
		ContentType: ContentTypeFor(rel),
	}, body, nil
}

// siteHash computes the deterministic whole-site hash from sorted assets.
func siteHash(assets []Asset) string {
	h := sha256.New()
	for _, a := range assets {
		h.Write([]byte(a.Path))
		h.Write([]byte{0})
		h.Write([]byte(a.SHA256))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
