/*
Package api serves burrow's task operations over HTTP.

Routes:

	GET    /v1/tasks                     reconciled task view
	POST   /v1/tasks                     create {"name", "task_definition", "container_name"}
	POST   /v1/tasks/{arn}/stop          stop a task (escape '/' in the ARN as %2F)
	DELETE /v1/tasks/{name}?task_arn=    stop (optional) and unregister
	GET    /v1/events?type=              lifecycle events as NDJSON, optionally filtered
	GET    /health, /ready, /live        component health
	GET    /metrics                      Prometheus metrics

Errors are returned as {"error": ..., "request_id": ...} with the status chosen
by StatusCode: invalid input 400, name conflict 409, missing RUNNING template
task 412, AWS failure 502, registry corruption 500.

Every response carries an X-Request-ID header. A request ID sent by the client
is echoed back; otherwise a UUID is generated. Handler wraps the engine with
otelhttp, so requests join the caller's trace when one is propagated.
*/
package api
