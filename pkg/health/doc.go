/*
Package health tracks backend reachability across repeated checks.

A Checker produces one Result per call. Probe adapts any func(ctx) error,
such as a gateway's Health method, into a Checker. A Monitor runs the
checker under a timeout and folds each Result into a Status: one success
marks the backend healthy again, while Config.Retries consecutive failures
are needed before it is reported unhealthy. This keeps a single dropped
request from flipping readiness.

	mon := health.NewMonitor(health.Probe(gw.Health), health.Config{
		Timeout: 5 * time.Second,
		Retries: 3,
	})
	result, healthy := mon.Check(ctx)
*/
package health
