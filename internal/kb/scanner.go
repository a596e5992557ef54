package kb

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// MarkerFileName marks a directory as a project.
const MarkerFileName = "project.md"

// maxDepth bounds the traversal. Real knowledge bases nest two or three
// levels; anything deeper is a wiki, not a project tree.
const maxDepth = 6

// Priority bounds, matching the projects table.
const (
	MinPriority     = 0
	MaxPriority     = 4
	DefaultPriority = 2
)

// builtinIgnore lists directory names never descended into.
var builtinIgnore = map[string]bool{
	"node_modules": true,
	".git":         true,
	".jj":          true,
	".obsidian":    true,
	"vendor":       true,
}

// ProjectInfo is a project descriptor scanned from the knowledge base.
//
// Descriptors are transient: they are rebuilt fresh on every scan pass and
// never persisted. They are purely input to reconciliation.
type ProjectInfo struct {
	// Slug identifies the project. Taken from frontmatter `slug` when
	// pinned, otherwise derived from the folder name.
	Slug string

	// Name is the display name (frontmatter name/title, or folder name).
	Name string

	// Organization owning the project.
	Organization string

	// Status in the file vocabulary, free-form. Translated by the
	// status package at reconcile time.
	Status string

	// Priority 0 (critical) to 4 (backlog).
	Priority int

	// Description from frontmatter, may be empty.
	Description string

	// SubProject is true for projects nested under another project.
	SubProject bool

	// ParentSlug links a sub-project to its parent by slug, not path.
	ParentSlug string

	// Path is the project directory, for diagnostics.
	Path string

	// ReviewAt is the parsed review date, if the frontmatter has one.
	ReviewAt *time.Time
}

// ScanResult is the inventory produced by one scan pass.
type ScanResult struct {
	Projects []*ProjectInfo
	Warnings []string
}

// Scanner walks a knowledge-base tree and produces project descriptors.
type Scanner struct {
	root   string
	cfg    *Config
	ignore map[string]bool
	logger *log.Logger
}

// NewScanner creates a scanner rooted at the given knowledge-base directory.
//
// kb.toml at the root is loaded if present. If logger is nil, a default
// logger writing to stderr is used.
func NewScanner(root string, logger *log.Logger) (*Scanner, error) {
	if root == "" {
		return nil, fmt.Errorf("root cannot be empty")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[kb] ", log.LstdFlags)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		return nil, err
	}

	ignore := make(map[string]bool, len(builtinIgnore)+len(cfg.Ignore))
	for name := range builtinIgnore {
		ignore[name] = true
	}
	for _, name := range cfg.Ignore {
		ignore[name] = true
	}

	return &Scanner{
		root:   root,
		cfg:    cfg,
		ignore: ignore,
		logger: logger,
	}, nil
}

// Scan walks the tree and returns the project inventory.
//
// Only a root-level failure (missing or unreadable root) returns an error.
// Per-file problems become warnings and the offending entry is skipped.
func (s *Scanner) Scan() (*ScanResult, error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, fmt.Errorf("failed to stat knowledge base root: %w", err)
	}

	result := &ScanResult{}
	s.scanDir(s.root, "", 0, result)
	return result, nil
}

// ScanProjects scans root and returns descriptors in one call. It is the
// entry point the CLI layer uses when it doesn't need a long-lived Scanner.
func ScanProjects(root string) ([]*ProjectInfo, error) {
	scanner, err := NewScanner(root, nil)
	if err != nil {
		return nil, err
	}
	result, err := scanner.Scan()
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		scanner.logger.Printf("Warning: %s", w)
	}
	return result.Projects, nil
}

// scanDir recursively scans one directory level.
//
// parentSlug is the slug of the nearest enclosing project ("" at the top).
// Sub-projects discovered below a project link to it by that slug.
func (s *Scanner) scanDir(dir, parentSlug string, depth int, result *ScanResult) {
	if depth > maxDepth {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("failed to read directory %s: %v", dir, err))
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || s.ignore[name] {
			continue
		}

		path := filepath.Join(dir, name)
		markerPath := filepath.Join(path, MarkerFileName)

		if _, err := os.Stat(markerPath); err != nil {
			// Not a project folder; keep looking below it.
			s.scanDir(path, parentSlug, depth+1, result)
			continue
		}

		info, err := s.readProject(markerPath, name, parentSlug)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipping %s: %v", markerPath, err))
			// Children still link against the folder-derived slug so one
			// broken parent file doesn't orphan the whole subtree.
			s.scanDir(path, Slugify(name), depth+1, result)
			continue
		}

		result.Projects = append(result.Projects, info)
		s.scanDir(path, info.Slug, depth+1, result)
	}
}

// readProject parses one project.md into a descriptor.
func (s *Scanner) readProject(markerPath, folderName, parentSlug string) (*ProjectInfo, error) {
	content, err := os.ReadFile(markerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read marker file: %w", err)
	}

	fm, err := parseFrontmatter(content)
	if err != nil {
		return nil, err
	}

	slug := fm.Slug
	if slug == "" {
		slug = folderName
	}
	slug = Slugify(slug)
	if slug == "" {
		return nil, fmt.Errorf("empty slug after normalization")
	}

	name := fm.Name
	if name == "" {
		name = fm.Title
	}
	if name == "" {
		name = folderName
	}

	org := fm.Organization
	if org == "" {
		org = s.cfg.Organization
	}

	priority := DefaultPriority
	if fm.Priority != nil {
		priority = *fm.Priority
		if priority < MinPriority {
			priority = MinPriority
		}
		if priority > MaxPriority {
			priority = MaxPriority
		}
	}

	return &ProjectInfo{
		Slug:         slug,
		Name:         name,
		Organization: org,
		Status:       fm.Status,
		Priority:     priority,
		Description:  fm.Description,
		SubProject:   parentSlug != "",
		ParentSlug:   parentSlug,
		Path:         filepath.Dir(markerPath),
		ReviewAt:     parseReviewDate(fm.Review, time.Now()),
	}, nil
}

// IgnoredDir reports whether a directory name is never scanned. Watchers
// use the same rule so the watched set matches the scanned set.
func IgnoredDir(name string) bool {
	return strings.HasPrefix(name, ".") || builtinIgnore[name]
}

// Slugify normalizes a folder name or frontmatter slug: lowercase, spaces
// and underscores become dashes, and anything outside [a-z0-9-] is dropped.
func Slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r == ' ' || r == '_' || r == '-':
			b.WriteRune('-')
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
