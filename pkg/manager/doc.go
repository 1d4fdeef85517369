/*
Package manager implements the task lifecycle operations of burrow.

A Manager ties together the cluster client, the network resolver and the name
registry:

	List    live tasks + resolved IPs + registry  →  reconciled view
	Create  validate → check name → copy network of first RUNNING task
	        → register name → RunTask
	Stop    StopTask (registry untouched)
	Delete  optional Stop → Unregister

# Create

New tasks reuse the subnet and security groups of the first RUNNING task in the
cluster. If there is no such task, or its interface cannot be resolved, Create
returns a *PreconditionError and neither the registry nor the cluster is
changed. Names already registered, or carried by a live task's "name" tag, are
rejected with a *ConflictError.

The name is registered before RunTask is called. A launch that fails afterwards
leaves the name registered, and List reports it as STOPPED until it is deleted.

Each RunTask call carries a fresh client token, so a retried request is not
launched twice by the cluster.

# Errors

Validation failures are *InvalidParameterError. Failures from the cloud client
are wrapped and keep their *cloud.APIError; registry decode failures keep their
*registry.CorruptionError. Use errors.As to match them.
*/
package manager
