// Package invalidate decides which cached query results a change event
// makes stale.
//
// Cached queries are keyed by an ordered path of segments — router,
// procedure, then input parameters ("items", "list", {filter...}). The
// matcher treats keys as prefix-matchable tree paths, never flat strings:
// an items event invalidates every query under the items namespace,
// whatever its filter arguments.
//
// Matching is deliberately coarse. The matcher does not inspect whether a
// changed id actually appears in a given filtered result; it invalidates
// the whole entity namespace, trading precision for correctness. False
// invalidations cost a refetch; false negatives cost a stale view.
package invalidate

import (
	"strings"

	"github.com/praxishq/praxis/internal/events"
)

// QueryKey is the ordered segment path identifying a cached query.
type QueryKey []string

// ParseKey splits a dot-joined key string into segments.
func ParseKey(s string) QueryKey {
	if s == "" {
		return nil
	}
	return QueryKey(strings.Split(s, "."))
}

// String renders the key dot-joined, for map keys and logs.
func (k QueryKey) String() string {
	return strings.Join(k, ".")
}

// RouterPaths returns the router namespaces whose cached queries an event
// for the given entity makes stale.
//
// The table is static and closed, and the switch is exhaustive over the
// entity set. Check-ins are a view over item records, so items and
// checkins share their namespaces in both directions.
func RouterPaths(entity events.Entity) []string {
	switch entity {
	case events.EntityItems:
		return []string{"items", "checkins"}
	case events.EntityCheckins:
		return []string{"checkins", "items"}
	case events.EntityPeople:
		return []string{"people"}
	case events.EntityProjects:
		return []string{"projects"}
	case events.EntityOrganizations:
		return []string{"organizations"}
	case events.EntityRoutines:
		return []string{"routines"}
	case events.EntityMeetings:
		return []string{"meetings"}
	default:
		return nil
	}
}

// ShouldInvalidate reports whether a cached key is stale after the event.
//
// The key's leading segment must equal — or be a dot-joined child of — one
// of the router paths for the event's entity. Deeper segments are the
// query's parameterization and never affect the match.
func ShouldInvalidate(key QueryKey, ev events.Event) bool {
	if len(key) == 0 {
		return false
	}
	for _, path := range RouterPaths(ev.Entity) {
		if key[0] == path || strings.HasPrefix(key[0], path+".") {
			return true
		}
	}
	return false
}
