// Package status translates between the three project status vocabularies
// used across praxis.
//
// A project's status lives in three places that never quite agree:
//
//  1. File status: free-form strings written by humans into knowledge-base
//     frontmatter ("active", "completed", "planning", "maintenance", ...).
//  2. Database status: the closed enumerated set stored in the projects
//     table ("pending", "in_progress", "active", ...).
//  3. Display status: emoji + title-case label rendered in the UI and in
//     generated markdown.
//
// Translation is lossy and deliberately forgiving: unrecognized file
// statuses map to "pending" and unrecognized database statuses map back to
// "active". Those defaults are load-bearing — the reconciler depends on
// them being deterministic, so they must never be changed casually.
package status

import "strings"

// Database status values. This is the closed set persisted in the projects
// table; nothing else is ever written to the status column.
const (
	DBPending    = "pending"
	DBInProgress = "in_progress"
	DBActive     = "active"
	DBBlocked    = "blocked"
	DBComplete   = "complete"
	DBCancelled  = "cancelled"
	DBPaused     = "paused"
)

// DBStatuses lists every valid database status in display order.
var DBStatuses = []string{
	DBPending,
	DBInProgress,
	DBActive,
	DBBlocked,
	DBComplete,
	DBCancelled,
	DBPaused,
}

// fileToDB maps known frontmatter statuses to database statuses.
// Keys are already normalized (lowercase, trimmed).
var fileToDB = map[string]string{
	"active":      DBActive,
	"completed":   DBComplete,
	"complete":    DBComplete,
	"planning":    DBPending,
	"maintenance": DBActive,
	"paused":      DBPaused,
}

// dbToFile maps database statuses back to the frontmatter vocabulary.
// Not an inverse of fileToDB: "complete" round-trips to "completed", and
// statuses with no frontmatter spelling fall through to "active".
var dbToFile = map[string]string{
	DBActive:   "active",
	DBComplete: "completed",
	DBPending:  "planning",
	DBPaused:   "paused",
}

// DisplayStatus is the UI rendering of a database status.
type DisplayStatus struct {
	Emoji string
	Label string
}

// display maps every database status to exactly one emoji and one
// title-case label. Keys outside this table have no badge.
var display = map[string]DisplayStatus{
	DBPending:    {Emoji: "⏳", Label: "Pending"},
	DBInProgress: {Emoji: "🔄", Label: "In Progress"},
	DBActive:     {Emoji: "🟢", Label: "Active"},
	DBBlocked:    {Emoji: "🚫", Label: "Blocked"},
	DBComplete:   {Emoji: "✅", Label: "Complete"},
	DBCancelled:  {Emoji: "❌", Label: "Cancelled"},
	DBPaused:     {Emoji: "⏸️", Label: "Paused"},
}

// normalize lowercases and trims a status before table lookup.
// All translation entry points are case-insensitive.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FileToDB translates a frontmatter status to a database status.
//
// Unknown inputs (including the empty string) return "pending". This never
// fails: whatever a human typed into frontmatter, the reconciler gets a
// valid database status back.
func FileToDB(fileStatus string) string {
	if db, ok := fileToDB[normalize(fileStatus)]; ok {
		return db
	}
	return DBPending
}

// DBToFile translates a database status to its frontmatter spelling.
//
// Unknown inputs return "active". Statuses without their own frontmatter
// spelling (in_progress, blocked, cancelled) also surface as "active" — the
// file vocabulary is coarser than the database one.
func DBToFile(dbStatus string) string {
	if f, ok := dbToFile[normalize(dbStatus)]; ok {
		return f
	}
	return "active"
}

// DBToDisplay returns the emoji + label badge for a database status.
//
// ok is false for anything outside the closed database set; callers must
// treat that as "omit the badge", not as an error.
func DBToDisplay(dbStatus string) (DisplayStatus, bool) {
	d, ok := display[normalize(dbStatus)]
	return d, ok
}

// Emoji returns the emoji for a database status, or "" when it has none.
// Convenience wrapper for markdown rendering.
func Emoji(dbStatus string) string {
	d, _ := DBToDisplay(dbStatus)
	return d.Emoji
}

// Label returns the title-case label for a database status, or "" when it
// has none.
func Label(dbStatus string) string {
	d, _ := DBToDisplay(dbStatus)
	return d.Label
}

// IsValidDB reports whether s is a member of the closed database status set.
func IsValidDB(s string) bool {
	_, ok := display[normalize(s)]
	return ok
}
