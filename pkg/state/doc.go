// Package state holds the engine's local copy of the workspace tree.
//
// The tree is where optimistic changes land before the backend confirms
// them, and where the engine reads what it needs to undo a change: the
// previous entity, its index among its siblings and the previous order of
// a collection. Display orders are kept contiguous after every structural
// change, matching what the backend does.
package state
