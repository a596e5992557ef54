package invalidate

import (
	"testing"

	"github.com/praxishq/praxis/internal/events"
)

func TestShouldInvalidateMatchingEntity(t *testing.T) {
	ev := events.New(events.EntityProjects, events.MutationCreate, 42)

	tests := []struct {
		key  QueryKey
		want bool
	}{
		{QueryKey{"projects"}, true},
		{QueryKey{"projects", "list"}, true},
		{QueryKey{"projects", "list", `{"status":"active"}`}, true},
		{QueryKey{"projects", "byId", "42"}, true},
		{QueryKey{"people"}, false},
		{QueryKey{"people", "list"}, false},
		{QueryKey{"meetings", "upcoming"}, false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := ShouldInvalidate(tt.key, ev); got != tt.want {
			t.Errorf("ShouldInvalidate(%v, projects/create) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestShouldInvalidateDotJoinedLeadingSegment(t *testing.T) {
	ev := events.New(events.EntityItems, events.MutationUpdate, 7)

	if !ShouldInvalidate(QueryKey{"items.list"}, ev) {
		t.Error("dot-joined leading segment should match")
	}
	if ShouldInvalidate(QueryKey{"itemsExtra.list"}, ev) {
		t.Error("prefix match must respect segment boundaries")
	}
}

func TestCheckinsAndItemsShareNamespaces(t *testing.T) {
	itemEv := events.New(events.EntityItems, events.MutationUpdate, 9)
	checkinEv := events.New(events.EntityCheckins, events.MutationCreate, 9)

	if !ShouldInvalidate(QueryKey{"checkins", "today"}, itemEv) {
		t.Error("item change should invalidate checkin queries")
	}
	if !ShouldInvalidate(QueryKey{"items", "list"}, checkinEv) {
		t.Error("checkin change should invalidate item queries")
	}
}

func TestRouterPathsCoverAllEntities(t *testing.T) {
	for _, entity := range events.Entities {
		if len(RouterPaths(entity)) == 0 {
			t.Errorf("RouterPaths(%q) is empty", entity)
		}
	}
}

func TestParseKey(t *testing.T) {
	key := ParseKey("items.list")
	if len(key) != 2 || key[0] != "items" || key[1] != "list" {
		t.Errorf("ParseKey = %v", key)
	}
	if ParseKey("") != nil {
		t.Error("ParseKey of empty string should be nil")
	}
	if got := key.String(); got != "items.list" {
		t.Errorf("String() = %q", got)
	}
}
