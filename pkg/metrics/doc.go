/*
Package metrics provides Prometheus metrics and health endpoints for burrow.

Metrics are registered on the default Prometheus registry at init and exposed
by `burrow serve` on /metrics:

	burrow_operations_total{operation,result}      list/create/stop/delete outcomes
	burrow_operation_duration_seconds{operation}   operation latency
	burrow_tasks_listed{status}                    tasks in the last reconciled view
	burrow_registry_entries                        names in the registry
	burrow_aws_api_errors_total{operation}         failed ECS/EC2 calls
	burrow_api_requests_total{route,status}        HTTP API requests
	burrow_events_published_total{type}            lifecycle events accepted
	burrow_events_dropped_total{reason}            lifecycle events dropped

Operations are timed with Timer:

	timer := metrics.NewTimer()
	views, err := m.List(ctx)
	metrics.RecordOperation("list", timer, err)

The health half of the package tracks named components (registry, aws) and
serves /health, /ready and /live. A component's state comes from two sources:
Report, called with the outcome of each API operation, and an optional Probe
that the health endpoints run when the last result is older than
DefaultProbeTTL. There is no background polling. /ready fails until every
entry in CriticalComponents is known and healthy.
*/
package metrics
