package site

import (
	"encoding/json"
	"fmt"
	"time"
)

// ManifestName is the manifest's filename at the site root. It is published
// with the site and fetched back by the deploy checker, so it must be a
// servable name: not dot-prefixed (Jekyll-style preprocessors drop dotfiles)
// and not underscore-prefixed.
const ManifestName = "pagedeck.manifest.json"

// manifestVersion identifies the manifest schema.
const manifestVersion = 1

// Manifest is the JSON snapshot published alongside the site. Comparing a
// deployed manifest's SiteHash with a fresh local scan detects stale
// deployments without fetching every file.
type Manifest struct {
	Version     int            `json:"version"`
	GeneratedAt time.Time      `json:"generated_at"`
	PublishID   string         `json:"publish_id,omitempty"`
	SiteHash    string         `json:"site_hash"`
	FileCount   int            `json:"file_count"`
	TotalBytes  int64          `json:"total_bytes"`
	Files       []ManifestFile `json:"files"`
}

// ManifestFile is one published file's identity.
type ManifestFile struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// BuildManifest converts an inventory into a publishable manifest.
// publishID may be empty for manifests built outside a publish run.
func BuildManifest(inv *Inventory, publishID string) *Manifest {
	m := &Manifest{
		Version:     manifestVersion,
		GeneratedAt: time.Now().UTC(),
		PublishID:   publishID,
		SiteHash:    inv.Hash,
		FileCount:   len(inv.Assets),
		TotalBytes:  inv.TotalBytes,
		Files:       make([]ManifestFile, 0, len(inv.Assets)),
	}
	for _, a := range inv.Assets {
		m.Files = append(m.Files, ManifestFile{Path: a.Path, SHA256: a.SHA256, Size: a.Size})
	}
	return m
}

// Encode renders the manifest as indented JSON with a trailing newline.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeManifest parses manifest JSON, rejecting unknown schema versions.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	if m.SiteHash == "" {
		return nil, fmt.Errorf("manifest has no site hash")
	}
	return &m, nil
}
