// Package site scans a static site tree into an immutable inventory.
//
// This package is internal to PageDeck and owns the site data model:
//
//   - [Inventory]: the scanned tree (pages, assets, hashes, site hash)
//   - [Page] / [Asset] / [Ref]: individual entries and their references
//   - [Manifest]: the publishable JSON snapshot used for staleness checks
//
// A scan walks the tree, hashes every file with sha256, and parses HTML
// pages to extract the references other components audit and verify.
// Users of the pagedeck library should not need to interact with this
// package directly; the root package re-exposes what callers need.
package site
