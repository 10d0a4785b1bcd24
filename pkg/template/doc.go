/*
Package template implements the template registry and the template + delta
content model of workspace tabs.

Every tab kind has a canonical default structure. A tab stores only its
delta, the keys whose values differ from that structure, and renders the
merged view obtained by deep-merging the delta onto a fresh copy of the
template.

# Merge Law

	merge(template, delta):
	  for each key in delta
	    both values keyed structures  -> recurse
	    otherwise                     -> delta value replaces template value

Arrays are never merged element-wise. A nil present in a delta overrides a
default; an absent key keeps it. Zero values and empty strings are ordinary
values and override defaults like any other.

# Immutable Constants

The immutableConstants subtree of a template carries reference values used
by the calculators. It is part of every merged view and is never part of a
delta: ExtractDelta skips it and StripImmutable removes it from deltas that
were built incrementally.

# Legacy Names

Older clients stored display names instead of kinds. Resolve maps them:

	"Welcome", "Design Tables" -> welcome
	"Snow Load"                -> snow_load
	"Wind Load"                -> wind_load
	"Seismic Hazards"          -> seismic

# Validation

Each kind also carries a JSON Schema for its merged view. Validate rejects
content whose known fields have the wrong type, which lets the engine refuse
a bad edit before anything is broadcast or persisted.
*/
package template
