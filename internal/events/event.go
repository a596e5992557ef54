package events

import "fmt"

// Entity identifies which kind of record a change touched.
// The set is closed: every switch over Entity in this package and in the
// invalidation tables enumerates all members explicitly.
type Entity string

const (
	EntityItems         Entity = "items"
	EntityPeople        Entity = "people"
	EntityProjects      Entity = "projects"
	EntityOrganizations Entity = "organizations"
	EntityRoutines      Entity = "routines"
	EntityCheckins      Entity = "checkins"
	EntityMeetings      Entity = "meetings"
)

// Entities lists every entity, for iteration in registries and tests.
var Entities = []Entity{
	EntityItems,
	EntityPeople,
	EntityProjects,
	EntityOrganizations,
	EntityRoutines,
	EntityCheckins,
	EntityMeetings,
}

// Valid reports whether e is a member of the closed entity set.
func (e Entity) Valid() bool {
	switch e {
	case EntityItems, EntityPeople, EntityProjects, EntityOrganizations,
		EntityRoutines, EntityCheckins, EntityMeetings:
		return true
	}
	return false
}

// EntityFromRouter maps a router name to its Entity. Router names happen to
// equal the entity strings today, but the mapping stays an explicit closed
// table so an unmapped router is a visible miss, not a silent conversion.
func EntityFromRouter(name string) (Entity, bool) {
	switch Entity(name) {
	case EntityItems:
		return EntityItems, true
	case EntityPeople:
		return EntityPeople, true
	case EntityProjects:
		return EntityProjects, true
	case EntityOrganizations:
		return EntityOrganizations, true
	case EntityRoutines:
		return EntityRoutines, true
	case EntityCheckins:
		return EntityCheckins, true
	case EntityMeetings:
		return EntityMeetings, true
	}
	return "", false
}

// Mutation classifies how a record changed.
type Mutation string

const (
	MutationCreate Mutation = "create"
	MutationUpdate Mutation = "update"
	MutationDelete Mutation = "delete"
)

// Valid reports whether m is a known mutation kind.
func (m Mutation) Valid() bool {
	switch m {
	case MutationCreate, MutationUpdate, MutationDelete:
		return true
	}
	return false
}

// Event is the change descriptor delivered to clients.
//
// Wire shape: {"entity": "...", "mutation": "create|update|delete",
// "id": n?, "ids": [n...]?}. At most one of ID/IDs is set; both absent is
// legal and tells clients to invalidate the whole entity namespace.
type Event struct {
	Entity   Entity   `json:"entity"`
	Mutation Mutation `json:"mutation"`
	ID       *int64   `json:"id,omitempty"`
	IDs      []int64  `json:"ids,omitempty"`
}

// New builds an event from affected row ids: none leaves both fields
// empty, one sets ID, several set IDs.
func New(entity Entity, mutation Mutation, ids ...int64) Event {
	ev := Event{Entity: entity, Mutation: mutation}
	switch len(ids) {
	case 0:
	case 1:
		id := ids[0]
		ev.ID = &id
	default:
		ev.IDs = append([]int64(nil), ids...)
	}
	return ev
}

// Validate checks the event against the closed vocabularies.
// Consumers drop invalid events rather than raising into application logic.
func (e Event) Validate() error {
	if !e.Entity.Valid() {
		return fmt.Errorf("unknown entity %q", e.Entity)
	}
	if !e.Mutation.Valid() {
		return fmt.Errorf("unknown mutation %q", e.Mutation)
	}
	if e.ID != nil && len(e.IDs) > 0 {
		return fmt.Errorf("event populates both id and ids")
	}
	return nil
}

// String renders the event for logs.
func (e Event) String() string {
	switch {
	case e.ID != nil:
		return fmt.Sprintf("%s/%s id=%d", e.Entity, e.Mutation, *e.ID)
	case len(e.IDs) > 0:
		return fmt.Sprintf("%s/%s ids=%v", e.Entity, e.Mutation, e.IDs)
	default:
		return fmt.Sprintf("%s/%s", e.Entity, e.Mutation)
	}
}
