// Package publish ships a scanned site tree to its hosting branch/folder.
//
// It mechanizes the manual "git add / git commit / git push" step of a
// static-site deploy. Two layouts are supported, matching the two ways
// hosts are typically configured:
//
//   - branch mode: the site is the entire content of a dedicated branch
//     (e.g. gh-pages, folder "/"). The publisher stages the tree, replaces
//     the branch content through a temporary git worktree, commits, and
//     pushes. The checked-out working branch is never touched.
//
//   - folder mode: the site lives in a folder of the current branch
//     (e.g. main, folder "/docs"). The publisher writes the marker files
//     into the folder itself, then commits and pushes the folder on the
//     current branch.
//
// Every publish writes a manifest carrying the site hash, so the deployed
// site can later be verified against the exact tree that was shipped.
//
// This package is internal to PageDeck and its API may change without
// notice.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/pagedeck/pagedeck/internal/site"
)

// nojekyllName disables the host's default Jekyll preprocessing.
const nojekyllName = ".nojekyll"

// Options configures a publish run.
type Options struct {
	// SiteDir is the local site tree to publish. It must match the
	// inventory passed to [Publisher.Publish].
	SiteDir string

	// RepoDir is the git repository root. Empty means SiteDir's
	// repository: branch mode lets git resolve upward from SiteDir,
	// folder mode walks up from SiteDir to the nearest .git.
	RepoDir string

	// Remote is the git remote to push to. Defaults to "origin".
	Remote string

	// Branch is the hosting branch. Defaults to "gh-pages".
	Branch string

	// Folder is the hosting folder within Branch: "/" (or empty) selects
	// branch mode; anything else selects folder mode on the current
	// branch and must equal SiteDir relative to RepoDir.
	Folder string

	// Message is the commit message. Empty selects a generated message
	// carrying the short site hash.
	Message string

	// CNAME, when set, writes a CNAME file carrying the custom domain.
	CNAME string

	// NoJekyll writes a .nojekyll marker so the host serves the tree
	// verbatim, underscore-prefixed paths included.
	NoJekyll bool

	// RenderMarkdown pre-renders each markdown file to a sibling .html
	// page in the published tree, so links keep working on hosts with
	// preprocessing disabled.
	RenderMarkdown bool

	// DryRun stages and reports without running any git command.
	DryRun bool

	// Push controls whether the commit is pushed. Disabled only by tests
	// and --no-push.
	Push bool
}

// Result reports what a publish run did.
type Result struct {
	// ID is the unique publish ID, also recorded in the manifest.
	ID string `json:"id"`

	// CommitSHA is the created commit, empty when skipped or dry-run.
	CommitSHA string `json:"commit_sha,omitempty"`

	// SiteHash identifies the exact tree content that was shipped.
	SiteHash string `json:"site_hash"`

	// Files and Bytes count the published tree including marker files.
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`

	// Skipped is true when the tree was already published unchanged.
	Skipped bool `json:"skipped"`

	// DryRun echoes the option.
	DryRun bool `json:"dry_run"`

	// Duration is the wall-clock publish time.
	Duration time.Duration `json:"duration"`
}

// Publisher ships site trees. Construct with [New], or [NewWithRunner] to
// substitute the git seam in tests.
type Publisher struct {
	runner Runner
	logger *slog.Logger
}

// New creates a [Publisher] using the git binary on PATH.
func New(logger *slog.Logger) *Publisher {
	return NewWithRunner(NewGitRunner(), logger)
}

// NewWithRunner creates a [Publisher] with a custom git [Runner].
func NewWithRunner(r Runner, logger *slog.Logger) *Publisher {
	return &Publisher{runner: r, logger: logger}
}

// Publish ships the inventory's tree per opts.
//
// The inventory must come from a fresh scan of opts.SiteDir; the manifest
// written alongside the files records its site hash. When the target
// branch already holds identical content the commit is skipped and the
// result says so.
func (p *Publisher) Publish(ctx context.Context, inv *site.Inventory, opts Options) (*Result, error) {
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.Branch == "" {
		opts.Branch = "gh-pages"
	}
	if opts.Message == "" {
		short := inv.Hash
		if len(short) > 12 {
			short = short[:12]
		}
		opts.Message = fmt.Sprintf("Publish site %s", short)
	}

	folderMode := opts.Folder != "" && opts.Folder != "/"
	if opts.RepoDir == "" {
		if folderMode {
			// folder mode compares SiteDir against the repo root, so the
			// root must be the actual one, not SiteDir itself
			root, err := findRepoRoot(opts.SiteDir)
			if err != nil {
				return nil, err
			}
			opts.RepoDir = root
		} else {
			opts.RepoDir = opts.SiteDir
		}
	}

	start := time.Now()
	result := &Result{
		ID:       uuid.NewString(),
		SiteHash: inv.Hash,
		DryRun:   opts.DryRun,
	}

	p.logger.Info("publish starting",
		"id", result.ID,
		"site_hash", inv.Hash,
		"branch", opts.Branch,
		"folder", opts.Folder,
		"mode", map[bool]string{true: "folder", false: "branch"}[folderMode],
		"dry_run", opts.DryRun,
	)

	var err error
	if folderMode {
		err = p.publishFolder(ctx, inv, opts, result)
	} else {
		err = p.publishBranch(ctx, inv, opts, result)
	}
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	p.logger.Info("publish finished",
		"id", result.ID,
		"commit", result.CommitSHA,
		"files", result.Files,
		"bytes", result.Bytes,
		"skipped", result.Skipped,
		"duration", result.Duration.String(),
	)
	return result, nil
}

// publishBranch replaces the hosting branch's content with the staged tree
// through a temporary worktree.
func (p *Publisher) publishBranch(ctx context.Context, inv *site.Inventory, opts Options, result *Result) error {
	staging, err := os.MkdirTemp("", "pagedeck-stage-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := p.stage(inv, opts, staging, result); err != nil {
		return err
	}
	if opts.DryRun {
		return nil
	}

	wt, err := os.MkdirTemp("", "pagedeck-worktree-")
	if err != nil {
		return fmt.Errorf("create worktree dir: %w", err)
	}
	// git worktree add refuses an existing directory
	os.RemoveAll(wt)
	defer func() {
		_, _ = p.runner.Run(ctx, opts.RepoDir, "worktree", "remove", "--force", wt)
		os.RemoveAll(wt)
	}()

	if branchExists(ctx, p.runner, opts.RepoDir, opts.Branch) {
		if _, err := p.runner.Run(ctx, opts.RepoDir, "worktree", "add", wt, opts.Branch); err != nil {
			return fmt.Errorf("add worktree for %s: %w", opts.Branch, err)
		}
	} else {
		// no hosting branch yet: detached worktree, then an orphan
		// checkout so the first publish has no parent history
		if _, err := p.runner.Run(ctx, opts.RepoDir, "worktree", "add", "--detach", wt); err != nil {
			return fmt.Errorf("add detached worktree: %w", err)
		}
		if _, err := p.runner.Run(ctx, wt, "checkout", "--orphan", opts.Branch); err != nil {
			return fmt.Errorf("create orphan branch %s: %w", opts.Branch, err)
		}
		if _, err := p.runner.Run(ctx, wt, "rm", "-rf", "--ignore-unmatch", "."); err != nil {
			return fmt.Errorf("clear orphan index: %w", err)
		}
	}

	if err := clearTree(wt); err != nil {
		return fmt.Errorf("clear worktree: %w", err)
	}
	if err := copyTree(staging, wt); err != nil {
		return fmt.Errorf("copy staged tree: %w", err)
	}

	if _, err := p.runner.Run(ctx, wt, "add", "-A"); err != nil {
		return fmt.Errorf("stage files: %w", err)
	}
	if !hasStagedChanges(ctx, p.runner, wt) {
		result.Skipped = true
		return nil
	}
	if _, err := p.runner.Run(ctx, wt, "commit", "-m", opts.Message); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	sha, err := p.runner.Run(ctx, wt, "rev-parse", "HEAD")
	if err != nil {
		return fmt.Errorf("resolve commit: %w", err)
	}
	result.CommitSHA = sha

	if opts.Push {
		if _, err := p.runner.Run(ctx, wt, "push", opts.Remote, opts.Branch); err != nil {
			return fmt.Errorf("push %s: %w", opts.Branch, err)
		}
	}
	return nil
}

// publishFolder writes the marker files into the live site folder and
// commits that folder on the current branch.
func (p *Publisher) publishFolder(ctx context.Context, inv *site.Inventory, opts Options, result *Result) error {
	repoAbs, err := filepath.Abs(opts.RepoDir)
	if err != nil {
		return fmt.Errorf("resolve repo dir: %w", err)
	}
	siteAbs, err := filepath.Abs(opts.SiteDir)
	if err != nil {
		return fmt.Errorf("resolve site dir: %w", err)
	}
	rel, err := filepath.Rel(repoAbs, siteAbs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("site dir %s is not inside repo %s", opts.SiteDir, opts.RepoDir)
	}
	folder := strings.Trim(filepath.ToSlash(filepath.Clean(opts.Folder)), "/")
	if filepath.ToSlash(rel) != folder {
		return fmt.Errorf("folder-mode publish requires site dir to be the published folder: site is %q, folder is %q", rel, folder)
	}

	// markers land in the live tree; only the manifest and companions are
	// written, the content itself is already in place
	if err := p.writeMarkers(inv, opts, siteAbs, result); err != nil {
		return err
	}
	result.Files = len(inv.Assets)
	result.Bytes = inv.TotalBytes
	if opts.DryRun {
		return nil
	}

	if _, err := p.runner.Run(ctx, repoAbs, "add", "--", rel); err != nil {
		return fmt.Errorf("stage folder: %w", err)
	}
	if !hasStagedChanges(ctx, p.runner, repoAbs) {
		result.Skipped = true
		return nil
	}
	if _, err := p.runner.Run(ctx, repoAbs, "commit", "-m", opts.Message); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	sha, err := p.runner.Run(ctx, repoAbs, "rev-parse", "HEAD")
	if err != nil {
		return fmt.Errorf("resolve commit: %w", err)
	}
	result.CommitSHA = sha

	if opts.Push {
		if _, err := p.runner.Run(ctx, repoAbs, "push", opts.Remote, "HEAD"); err != nil {
			return fmt.Errorf("push: %w", err)
		}
	}
	return nil
}

// stage copies the inventory's tree into dir and writes the marker files.
func (p *Publisher) stage(inv *site.Inventory, opts Options, dir string, result *Result) error {
	for _, a := range inv.Assets {
		src := filepath.Join(inv.Root, filepath.FromSlash(a.Path))
		dst := filepath.Join(dir, filepath.FromSlash(a.Path))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("stage %s: %w", a.Path, err)
		}
	}
	result.Files = len(inv.Assets)
	result.Bytes = inv.TotalBytes
	return p.writeMarkers(inv, opts, dir, result)
}

// writeMarkers writes the manifest, .nojekyll, CNAME, and pre-rendered
// markdown companions into dir. The manifest write is atomic so a crashed
// publish never leaves a torn manifest for the checker to trip over.
func (p *Publisher) writeMarkers(inv *site.Inventory, opts Options, dir string, result *Result) error {
	manifest := site.BuildManifest(inv, result.ID)
	data, err := manifest.Encode()
	if err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(dir, site.ManifestName), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	result.Files++
	result.Bytes += int64(len(data))

	if opts.NoJekyll {
		if err := writeAtomic(filepath.Join(dir, nojekyllName), nil); err != nil {
			return fmt.Errorf("write %s: %w", nojekyllName, err)
		}
		result.Files++
	}
	if opts.CNAME != "" {
		data := []byte(opts.CNAME + "\n")
		if err := writeAtomic(filepath.Join(dir, "CNAME"), data); err != nil {
			return fmt.Errorf("write CNAME: %w", err)
		}
		result.Files++
		result.Bytes += int64(len(data))
	}
	if opts.RenderMarkdown {
		if err := p.renderMarkdown(inv, dir, result); err != nil {
			return err
		}
	}
	return nil
}

// renderMarkdown converts each markdown asset to a sibling .html page.
func (p *Publisher) renderMarkdown(inv *site.Inventory, dir string, result *Result) error {
	md := goldmark.New()
	for _, a := range inv.Assets {
		if !site.IsMarkdown(a.Path) {
			continue
		}
		src, err := os.ReadFile(filepath.Join(inv.Root, filepath.FromSlash(a.Path)))
		if err != nil {
			return fmt.Errorf("read %s: %w", a.Path, err)
		}
		var body bytes.Buffer
		if err := md.Convert(src, &body); err != nil {
			return fmt.Errorf("render %s: %w", a.Path, err)
		}
		page := markdownPage(a.Path, body.Bytes())
		out := strings.TrimSuffix(a.Path, filepath.Ext(a.Path)) + ".html"
		if err := writeAtomic(filepath.Join(dir, filepath.FromSlash(out)), page); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		result.Files++
		result.Bytes += int64(len(page))
	}
	return nil
}

// markdownPage wraps rendered markdown body HTML in a minimal document.
func markdownPage(path string, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	buf.WriteString(html.EscapeString(path))
	buf.WriteString("</title>\n</head>\n<body>\n")
	buf.Write(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes()
}

// findRepoRoot walks up from dir to the nearest directory containing a
// .git entry (a directory in a normal checkout, a file in a worktree).
func findRepoRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	for {
		if _, err := os.Stat(filepath.Join(abs, ".git")); err == nil {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no git repository found above %s", dir)
		}
		abs = parent
	}
}

// writeAtomic writes data to path via a temp file and atomic rename.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = pending.Cleanup() }()
	if _, err := pending.Write(data); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

// copyFile copies src to dst, creating parent directories.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyTree copies every file under src into dst.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		return copyFile(p, filepath.Join(dst, rel))
	})
}

// clearTree removes everything in dir except the .git link file a
// worktree carries.
func clearTree(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
