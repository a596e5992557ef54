// Package kb scans a markdown knowledge base for project descriptors.
//
// A knowledge base is a directory tree where each project is a folder
// containing a project.md marker file with YAML frontmatter:
//
//	kb/
//	├── kb.toml                  (optional root config)
//	├── acme/
//	│   ├── project.md           (project "acme")
//	│   └── rollout/
//	│       └── project.md       (sub-project of "acme")
//	└── homelab/
//	    └── project.md
//
// Scanning is read-only and rebuilt fresh on every pass: the scanner never
// persists anything, it only produces the in-memory inventory that the
// reconciler compares against the database.
//
// # Malformed files
//
// A file with broken frontmatter is recorded as a warning on the ScanResult
// and skipped; one bad file never aborts the scan.
//
// # Parent linkage across renames
//
// Sub-projects are linked to their parent by the parent's slug, not by the
// directory path. By default the slug is derived from the folder name, so
// renaming a parent folder changes the slug seen on the next scan and the
// children follow the new slug. Projects that must survive folder renames
// should pin an explicit `slug:` in their frontmatter; that pinned slug is
// what children link against.
package kb
