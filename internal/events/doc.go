// Package events is the change-notification core of praxis.
//
// Every successful mutation — whether it came from knowledge-base
// reconciliation or a direct API write — becomes exactly one
// DataChangeEvent describing which entity changed, how, and (when known)
// which row ids were affected. Events exist so connected clients can
// invalidate exactly the cached queries the change made stale.
//
// # Components
//
//   - Event / Entity / Mutation: the wire model. Entity is a closed
//     enumeration; adding one means updating the exhaustive switches in
//     this package and in the invalidation tables, which the compiler and
//     tests surface immediately.
//   - Emitter: the single choke point between mutations and the transport.
//     Operations are declared up front with an explicit mutation kind;
//     emission looks the operation up rather than guessing from the
//     procedure name.
//   - Hub: process-wide fan-out with a bounded ring of recent events.
//     Constructed once at startup and passed by handle; there is no
//     package-level singleton.
//
// # Delivery guarantees
//
// Best-effort, in-order per subscriber, at-most-once. A subscriber that
// falls behind loses events (never blocks the publisher), a disconnected
// subscriber is dropped from the fan-out set, and nothing survives a
// process restart beyond the in-memory ring handed to new connections.
// Publishing is fire-and-forget: a transport problem never rolls back or
// fails the already-committed mutation that produced the event.
package events
