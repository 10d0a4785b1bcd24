/*
Package log provides structured logging for the workspace engine using zerolog.

The package wraps a single global zerolog logger that is initialised once from
configuration. Components derive child loggers carrying a component name and
add entity ids (project_id, page_id, tab_id, temp_id) as fields so that every
line about one tab or project can be filtered out of a busy session.

# Architecture

	┌──────────────────── LOGGING ─────────────────────┐
	│                                                   │
	│  log.Init(Config)                                 │
	│    - Level: debug/info/warn/error                 │
	│    - Format: JSON or console                      │
	│    - Output: stderr or custom writer              │
	│                     │                             │
	│  Component loggers  ▼                             │
	│    - WithComponent("engine")                      │
	│    - ParseLevel validates configured names        │
	│                                                   │
	└───────────────────────────────────────────────────┘

# Levels

The engine logs at:
  - debug: per-keystroke scheduling of debounced tab writes
  - info: confirmed mutations and id mappings
  - warn: suppressed concurrent deletes, dropped events, degraded reads
  - error: rollbacks after a failed backend call

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	logger := log.WithComponent("engine")
	logger.Info().Str("temp_id", tempID).Str("real_id", realID).Msg("Project created")

# Security

The session password used for encrypted tab content is never logged. Tab
content itself is only logged at debug level and only as key names.
*/
package log
