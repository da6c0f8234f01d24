// Package audit validates a scanned site tree before it is published.
//
// Each rule targets a way static-site deploys actually break: a required
// page that never made it into the tree, a vendored library bundle that is
// missing so plots render blank, a reference that resolves locally but 404s
// on a case-sensitive host, or an underscore-prefixed directory the host's
// default preprocessor silently drops.
//
// [Run] applies every rule to an inventory and returns a [Report] of
// findings ordered by severity. The report serializes to JSON for the
// dashboard and CI output.
package audit
