package events

import (
	"log"
	"os"
	"strings"
	"sync"
)

// Operation is a declared mutation site: which entity it touches and what
// kind of change it makes. Kinds are declared at registration, never
// inferred at emission time.
type Operation struct {
	Entity Entity
	Kind   Mutation
}

// Emitter is the choke point between committed mutations and the Hub.
//
// Callers invoke AfterMutation only after the underlying write has been
// durably committed, so a client that receives the event and immediately
// re-queries is guaranteed to observe the new state. Emission is
// fire-and-forget: nothing here can fail the mutation that already
// happened.
type Emitter struct {
	hub    *Hub
	logger *log.Logger

	mu  sync.RWMutex
	ops map[string]Operation
}

// NewEmitter creates an emitter bound to a hub, pre-seeded with the
// standard CRUD operations for every entity. If logger is nil, a default
// stderr logger is used.
func NewEmitter(hub *Hub, logger *log.Logger) *Emitter {
	if logger == nil {
		logger = log.New(os.Stderr, "[emit] ", log.LstdFlags)
	}

	e := &Emitter{
		hub:    hub,
		logger: logger,
		ops:    make(map[string]Operation),
	}
	e.registerDefaults()
	return e
}

// Register declares an operation path ("projects.create") with an explicit
// entity and mutation kind. Later registrations overwrite earlier ones.
func (e *Emitter) Register(path string, entity Entity, kind Mutation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ops[path] = Operation{Entity: entity, Kind: kind}
}

// Lookup returns the declared operation for a path.
func (e *Emitter) Lookup(path string) (Operation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	op, ok := e.ops[path]
	return op, ok
}

// AfterMutation publishes the event for a committed mutation.
//
// path is the operation path ("items.delete"); ids are the affected row
// ids when the mutation reported them. Paths with no declared operation
// are silently ignored — read procedures and unmapped routers produce no
// event. Never returns an error and never panics: a notification problem
// must not surface to the mutation caller.
func (e *Emitter) AfterMutation(path string, ids ...int64) {
	op, ok := e.Lookup(path)
	if !ok {
		return
	}
	e.hub.Publish(New(op.Entity, op.Kind, ids...))
}

// Emit publishes a fully formed event directly. Used by callers that hold
// the entity and kind themselves rather than an operation path.
func (e *Emitter) Emit(ev Event) {
	e.hub.Publish(ev)
}

// registerDefaults declares the standard create/update/delete procedures
// (and their add/remove aliases) for every entity.
func (e *Emitter) registerDefaults() {
	for _, entity := range Entities {
		name := string(entity)
		e.ops[name+".create"] = Operation{Entity: entity, Kind: MutationCreate}
		e.ops[name+".add"] = Operation{Entity: entity, Kind: MutationCreate}
		e.ops[name+".update"] = Operation{Entity: entity, Kind: MutationUpdate}
		e.ops[name+".delete"] = Operation{Entity: entity, Kind: MutationDelete}
		e.ops[name+".remove"] = Operation{Entity: entity, Kind: MutationDelete}
	}
}

// SplitPath divides an operation path into router and procedure segments.
// "projects.create" → ("projects", "create"). A path with no dot has an
// empty procedure.
func SplitPath(path string) (router, procedure string) {
	if i := strings.Index(path, "."); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// ClassifyProcedure guesses a mutation kind from a procedure name by
// substring match: "create"/"add" → create, "delete"/"remove" → delete,
// anything else → update.
//
// This heuristic misclassifies compound names (an "updateOrCreate" comes
// back as create even when the call updated), which is why registered
// operations carry declared kinds instead. It survives only for registering operations whose
// definition site is outside this codebase.
func ClassifyProcedure(procedure string) Mutation {
	p := strings.ToLower(procedure)
	switch {
	case strings.Contains(p, "create") || strings.Contains(p, "add"):
		return MutationCreate
	case strings.Contains(p, "delete") || strings.Contains(p, "remove"):
		return MutationDelete
	default:
		return MutationUpdate
	}
}

// RegisterLegacy declares an operation using the substring heuristic for
// its kind. The router segment must map to a known entity; unknown routers
// are ignored, matching the closed entity table.
func (e *Emitter) RegisterLegacy(path string) {
	router, procedure := SplitPath(path)
	entity, ok := EntityFromRouter(router)
	if !ok {
		e.logger.Printf("Ignoring operation on unknown router %q", router)
		return
	}
	e.Register(path, entity, ClassifyProcedure(procedure))
}
