/*
Package api implements the local bridge between the synchronization engine
and a UI process.

The bridge never mutates the workspace. It serves read-only JSON views of
the locally held tree and streams every engine event over a websocket, so a
UI can render optimistic state and apply confirmations or rollbacks as
they arrive.

# Architecture

	┌──────────────── UI PROCESS ────────────────┐
	│   GET /workspace        ws /events          │
	└──────────┬──────────────────┬───────────────┘
	           │ HTTP (JSON)      │ websocket (JSON frames)
	┌──────────▼──────────────────▼───────────────┐
	│               Bridge (pkg/api)              │
	│  /health /ready /metrics                    │
	│  /workspace /projects/{id} /pages/{id}      │
	│  /tabs/{id} /events                         │
	└──────────┬──────────────────┬───────────────┘
	           │ snapshots        │ Subscribe
	┌──────────▼──────────────────▼───────────────┐
	│      Engine (state tree + event broker)     │
	└─────────────────────────────────────────────┘

# Event stream

The first frame on /events is a WORKSPACE_LOADED event carrying the current
tree. Every later frame is one events.Event as published by the engine, in
publish order. A client that falls behind by more than the subscriber
buffer loses events and should reconnect to get a fresh snapshot.

	ws://127.0.0.1:7420/events?types=TAB_DATA_SAVED,TAB_DATA_SAVE_FAILED

# Health

/health answers 200 while the process is alive. /ready answers 200 once
the gateway, engine and event components report healthy, and 503 with
the failing checks otherwise.

# Access

Every request passes through a guard before routing. WithAllowedNetworks
rejects peers outside the listed CIDRs with 403, and WithRateLimit gives
each peer address its own token bucket, answering 429 once it is empty.

# Usage

	srv := api.NewServer(eng, version, api.WithRateLimit(50, 100))
	go func() {
		if err := srv.Start(cfg.Bridge.Addr); err != nil {
			log.Logger.Error().Err(err).Msg("Bridge stopped")
		}
	}()
	defer srv.Shutdown(ctx)
*/
package api
