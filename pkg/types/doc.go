/*
Package types defines the workspace data model shared by every other package.

The tree is Workspace → Project → Page → Tab. Each level exclusively owns the
next one, so the model is always a tree and never a graph. Identifiers are
plain strings: either a temporary id fabricated on the client while a create
is in flight, or the stable id issued by the backend.

# Tab Content

Tab content is never stored or transmitted as a full structure:

	┌────────────── TAB CONTENT ──────────────┐
	│                                          │
	│  Template[kind]   (defaults, in memory)  │
	│        +                                 │
	│  Delta            (user deviations)      │
	│        =                                 │
	│  Merged           (what the UI renders)  │
	│                                          │
	└──────────────────────────────────────────┘

Only the Delta travels over the wire. Merged is always re-derived through the
template package and is never persisted.

# Patches

Updates are expressed as patch structs with pointer fields. A nil field
means "leave unchanged", which lets a rename race a reorder without either
clobbering the other's fields.
*/
package types
