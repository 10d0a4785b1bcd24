/*
Package reconciler holds the per-session state that reconciles locally
fabricated entities with the ones the backend creates.

# Identifier Space

Creates are broadcast before the backend has answered, so the new entity
needs an id immediately. IDs.GenerateTempID fabricates one:

	temp_1718035200123_k3f9a00x2
	     └── unix ms ──┘ └ rnd ┘└ctr┘

When the backend returns the real id the engine calls MapTempID, which
records the pair and broadcasts ID_MAPPED. From then on every operation
that names the temp id is redirected to the real id.

	                   BeginCreate(t1)
	  CreateProject ───────────────┬──────────────▶ gateway.CreateProject
	                               │                        │
	  UpdateProject(t1) ──▶ Resolve(t1) blocks              │
	                               │                        ▼
	                               └──── released ◀── MapTempID(t1, 42)
	                                          │
	                                          ▼
	                               gateway.UpdateProject(42)

RealID never blocks and returns unknown ids unchanged. Resolve waits while
the owning create is still in flight and fails with ErrCreateFailed if that
create rolled back. Ids must be resolved right before each backend call
and never cached across one, since a mapping may appear at any time.

# Pending Operations

Pending is a set of keys for operations that must not run twice at once.
Deletes take DeleteKey(realID); a second delete for the same entity while
the first is in flight is dropped rather than queued.

# Lifecycle

A Store is created per session and Reset on logout. Mappings are never
removed before that.
*/
package reconciler
