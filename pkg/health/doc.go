// Package health provides liveness and readiness probes.
//
// [LivenessHandler] always answers OK while the process is up.
// [ReadinessHandler] runs a set of named [Checks] in parallel and answers 503
// when any of them fails. [Run] executes the same checks outside HTTP, which
// the CLI uses before a manual dispatch.
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "postgres":  db.Healthcheck(pool),
//	    "scheduler": sched.Healthcheck(),
//	}, health.WithLogger(log)))
//
// Responses are plain text ("OK" / "Service Unavailable") unless the client
// sends Accept: application/json or ?format=json:
//
//	{
//	  "status": "unhealthy",
//	  "checks": {
//	    "postgres": {"status": "healthy"},
//	    "scheduler": {"status": "unhealthy", "error": "scheduler: not running"}
//	  }
//	}
package health
