/*
Package metrics provides Prometheus metrics and component health for vcw.

All collectors are package-level variables registered with the default
Prometheus registry at init, so any package can record a sample without
wiring. The bridge exposes them on /metrics through Handler.

# Metric Families

Workspace (sampled by Collector from the engine's local tree):

	vcw_projects_total              gauge
	vcw_pages_total                 gauge
	vcw_tabs_total{kind}            gauge
	vcw_pending_operations          gauge

Gateway (recorded per backend request):

	vcw_gateway_requests_total{operation,status}
	vcw_gateway_request_duration_seconds{operation}
	vcw_gateway_retries_total

Synchronization (recorded by the engine):

	vcw_mutations_total{entity,operation,outcome}   outcome: confirmed, rolled_back, suppressed
	vcw_commit_duration_seconds{entity}
	vcw_deletes_suppressed_total
	vcw_id_mappings_total
	vcw_tab_data_fragments_total
	vcw_tab_data_writes_total{mode,outcome}

Events:

	vcw_events_published_total{type}
	vcw_events_dropped_total

# Timing

	timer := metrics.NewTimer()
	err := gw.CreateProject(ctx, name)
	timer.ObserveDurationVec(metrics.CommitDuration, "project")

# Health

Components report their state with RegisterComponent and UpdateComponent.
GetHealth aggregates every component: a failing critical component makes
the process unhealthy, any other failure only degrades it. GetReadiness
only considers CriticalComponents (gateway, engine, events) and reports
not_ready until all of them are registered and healthy. Each report is also
exported as vcw_component_healthy{component}.

	metrics.RegisterComponent(metrics.ComponentGateway, false, "not probed")
	...
	metrics.UpdateComponent(metrics.ComponentGateway, true, "")
*/
package metrics
