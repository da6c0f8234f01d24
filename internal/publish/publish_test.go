package publish

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pagedeck/pagedeck/internal/site"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner records git invocations and fakes the few queries the
// publisher makes.
type fakeRunner struct {
	branchExists  bool
	stagedChanges bool
	calls         []string
}

func (f *fakeRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	f.calls = append(f.calls, strings.Join(args, " "))
	switch {
	case len(args) >= 2 && args[0] == "rev-parse" && args[1] == "--verify":
		if !f.branchExists {
			return "", context.Canceled // any error means "no such branch"
		}
		return "abc123", nil
	case len(args) >= 2 && args[0] == "diff" && args[1] == "--cached":
		if f.stagedChanges {
			return "", context.Canceled // non-zero exit means changes staged
		}
		return "", nil
	case len(args) == 2 && args[0] == "rev-parse" && args[1] == "HEAD":
		return "abc123def456", nil
	}
	return "", nil
}

func (f *fakeRunner) called(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func scanSite(t *testing.T, files map[string]string) *site.Inventory {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)
	inv, err := site.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return inv
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", name, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func TestPublishBranchMode(t *testing.T) {
	inv := scanSite(t, map[string]string{
		"index.html":    "<html></html>",
		"vendor/lib.js": "1;",
	})
	runner := &fakeRunner{branchExists: true, stagedChanges: true}
	p := NewWithRunner(runner, discardLogger())

	result, err := p.Publish(context.Background(), inv, Options{
		SiteDir:  inv.Root,
		NoJekyll: true,
		Push:     true,
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if result.CommitSHA != "abc123def456" {
		t.Errorf("CommitSHA = %q, want abc123def456", result.CommitSHA)
	}
	if result.Skipped {
		t.Errorf("Skipped = true, want false")
	}
	// 2 assets + manifest + .nojekyll
	if result.Files != 4 {
		t.Errorf("Files = %d, want 4", result.Files)
	}
	if result.SiteHash != inv.Hash {
		t.Errorf("SiteHash = %s, want %s", result.SiteHash, inv.Hash)
	}

	for _, want := range []string{"worktree add", "add -A", "commit -m", "push origin gh-pages", "worktree remove"} {
		if !runner.called(want) {
			t.Errorf("git %q not run; calls: %v", want, runner.calls)
		}
	}
	if runner.called("checkout --orphan") {
		t.Errorf("orphan checkout run for an existing branch; calls: %v", runner.calls)
	}
}

func TestPublishBranchModeBootstrapsOrphan(t *testing.T) {
	inv := scanSite(t, map[string]string{"index.html": "<html></html>"})
	runner := &fakeRunner{branchExists: false, stagedChanges: true}
	p := NewWithRunner(runner, discardLogger())

	if _, err := p.Publish(context.Background(), inv, Options{SiteDir: inv.Root, Push: true}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for _, want := range []string{"worktree add --detach", "checkout --orphan gh-pages", "rm -rf"} {
		if !runner.called(want) {
			t.Errorf("git %q not run; calls: %v", want, runner.calls)
		}
	}
}

func TestPublishSkipsUnchangedTree(t *testing.T) {
	inv := scanSite(t, map[string]string{"index.html": "<html></html>"})
	runner := &fakeRunner{branchExists: true, stagedChanges: false}
	p := NewWithRunner(runner, discardLogger())

	result, err := p.Publish(context.Background(), inv, Options{SiteDir: inv.Root, Push: true})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !result.Skipped {
		t.Errorf("Skipped = false, want true")
	}
	if result.CommitSHA != "" {
		t.Errorf("CommitSHA = %q, want empty", result.CommitSHA)
	}
	if runner.called("commit") || runner.called("push") {
		t.Errorf("commit or push run for unchanged tree; calls: %v", runner.calls)
	}
}

func TestPublishDryRunRunsNoGit(t *testing.T) {
	inv := scanSite(t, map[string]string{"index.html": "<html></html>"})
	runner := &fakeRunner{}
	p := NewWithRunner(runner, discardLogger())

	result, err := p.Publish(context.Background(), inv, Options{SiteDir: inv.Root, DryRun: true})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !result.DryRun {
		t.Errorf("DryRun = false, want true")
	}
	if result.Files != 2 { // index.html + manifest
		t.Errorf("Files = %d, want 2", result.Files)
	}
	if len(runner.calls) != 0 {
		t.Errorf("git run during dry-run: %v", runner.calls)
	}
}

func TestPublishFolderModeWritesMarkers(t *testing.T) {
	repo := t.TempDir()
	siteDir := filepath.Join(repo, "docs")
	writeFiles(t, siteDir, map[string]string{
		"index.html": "<html></html>",
		"guide.md":   "# Guide\n\nHello.",
	})
	inv, err := site.Scan(context.Background(), siteDir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	runner := &fakeRunner{stagedChanges: true}
	p := NewWithRunner(runner, discardLogger())

	result, err := p.Publish(context.Background(), inv, Options{
		SiteDir:        siteDir,
		RepoDir:        repo,
		Folder:         "/docs",
		CNAME:          "demo.example.com",
		NoJekyll:       true,
		RenderMarkdown: true,
		Push:           true,
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if result.CommitSHA == "" {
		t.Errorf("CommitSHA empty, want commit")
	}

	// markers land in the live folder
	manifestData, err := os.ReadFile(filepath.Join(siteDir, site.ManifestName))
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	m, err := site.DecodeManifest(manifestData)
	if err != nil {
		t.Fatalf("DecodeManifest() error = %v", err)
	}
	if m.SiteHash != inv.Hash {
		t.Errorf("manifest SiteHash = %s, want %s", m.SiteHash, inv.Hash)
	}
	if m.PublishID != result.ID {
		t.Errorf("manifest PublishID = %q, want %q", m.PublishID, result.ID)
	}

	if _, err := os.Stat(filepath.Join(siteDir, ".nojekyll")); err != nil {
		t.Errorf(".nojekyll not written: %v", err)
	}
	cname, err := os.ReadFile(filepath.Join(siteDir, "CNAME"))
	if err != nil {
		t.Fatalf("CNAME not written: %v", err)
	}
	if string(cname) != "demo.example.com\n" {
		t.Errorf("CNAME = %q, want %q", cname, "demo.example.com\n")
	}

	rendered, err := os.ReadFile(filepath.Join(siteDir, "guide.html"))
	if err != nil {
		t.Fatalf("rendered markdown not written: %v", err)
	}
	if !strings.Contains(string(rendered), "<h1") {
		t.Errorf("rendered markdown has no heading: %q", rendered)
	}

	if !runner.called("add -- docs") {
		t.Errorf("folder not staged; calls: %v", runner.calls)
	}
	if !runner.called("push origin HEAD") {
		t.Errorf("current branch not pushed; calls: %v", runner.calls)
	}
	if runner.called("worktree add") {
		t.Errorf("worktree used in folder mode; calls: %v", runner.calls)
	}
}

func TestPublishFolderModeResolvesRepoRoot(t *testing.T) {
	repo := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repo, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
	siteDir := filepath.Join(repo, "docs")
	writeFiles(t, siteDir, map[string]string{"index.html": "<html></html>"})
	inv, err := site.Scan(context.Background(), siteDir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	runner := &fakeRunner{stagedChanges: true}
	p := NewWithRunner(runner, discardLogger())

	// RepoDir left empty, as the CLI does
	result, err := p.Publish(context.Background(), inv, Options{
		SiteDir: siteDir,
		Folder:  "/docs",
		Push:    true,
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if result.CommitSHA == "" {
		t.Errorf("CommitSHA empty, want commit")
	}
	if !runner.called("add -- docs") {
		t.Errorf("folder not staged; calls: %v", runner.calls)
	}
}

func TestPublishFolderModeOutsideRepo(t *testing.T) {
	siteDir := t.TempDir() // no .git anywhere above
	writeFiles(t, siteDir, map[string]string{"index.html": "<html></html>"})
	inv, err := site.Scan(context.Background(), siteDir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	p := NewWithRunner(&fakeRunner{}, discardLogger())
	_, err = p.Publish(context.Background(), inv, Options{
		SiteDir: siteDir,
		Folder:  "/docs",
	})
	if err == nil {
		t.Fatalf("Publish() error = nil, want no-repository error")
	}
	if !strings.Contains(err.Error(), "no git repository") {
		t.Errorf("error = %v, want no git repository", err)
	}
}

func TestPublishFolderModeRejectsMismatchedDir(t *testing.T) {
	repo := t.TempDir()
	siteDir := filepath.Join(repo, "docs")
	writeFiles(t, siteDir, map[string]string{"index.html": "<html></html>"})
	inv, err := site.Scan(context.Background(), siteDir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	p := NewWithRunner(&fakeRunner{}, discardLogger())
	_, err = p.Publish(context.Background(), inv, Options{
		SiteDir: siteDir,
		RepoDir: repo,
		Folder:  "/site", // does not match docs/
	})
	if err == nil {
		t.Errorf("Publish() error = nil, want folder mismatch error")
	}
}

func TestPublishDefaultMessageCarriesHash(t *testing.T) {
	inv := scanSite(t, map[string]string{"index.html": "<html></html>"})
	runner := &fakeRunner{branchExists: true, stagedChanges: true}
	p := NewWithRunner(runner, discardLogger())

	if _, err := p.Publish(context.Background(), inv, Options{SiteDir: inv.Root}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	want := "commit -m Publish site " + inv.Hash[:12]
	if !runner.called(want) {
		t.Errorf("commit message missing short hash; calls: %v", runner.calls)
	}
}
