package kb

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// frontmatter is the YAML block at the top of a project.md file.
// All fields are optional; Scan fills in derived defaults.
type frontmatter struct {
	Slug         string `yaml:"slug"`
	Name         string `yaml:"name"`
	Title        string `yaml:"title"`
	Organization string `yaml:"organization"`
	Status       string `yaml:"status"`
	Priority     *int   `yaml:"priority"`
	Description  string `yaml:"description"`
	Review       string `yaml:"review"`
}

// parseFrontmatter extracts and decodes the YAML frontmatter block from
// markdown content.
//
// The block must start on the first line with "---" and be closed by a
// second "---". A file with no frontmatter at all returns an empty
// frontmatter and no error; a block that opens but never closes, or that
// contains invalid YAML, returns an error.
func parseFrontmatter(content []byte) (*frontmatter, error) {
	var fm frontmatter

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	if !strings.HasPrefix(text, frontmatterDelim+"\n") {
		// No frontmatter block; all descriptor fields derive from the path.
		return &fm, nil
	}

	rest := text[len(frontmatterDelim)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelim)
	if end < 0 {
		return nil, fmt.Errorf("unterminated frontmatter block")
	}

	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, fmt.Errorf("invalid frontmatter YAML: %w", err)
	}

	return &fm, nil
}

// dateParser resolves natural-language review dates ("next friday",
// "2026-03-01") in frontmatter.
var dateParser = newDateParser()

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseReviewDate interprets the free-form review field.
//
// Unparseable values return nil — a fuzzy date a human scribbled into
// frontmatter is never worth failing a scan over.
func parseReviewDate(s string, now time.Time) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}

	r, err := dateParser.Parse(s, now)
	if err != nil || r == nil {
		return nil
	}
	return &r.Time
}
