/*
Package reconciler merges the live cluster view with the name registry.

The cluster only reports tasks that still exist, while the registry remembers
every name burrow launched. Merge combines the two into the reconciled view:

	live tasks          [alpha RUNNING arn:1]
	registry            {alpha, beta}
	                        │
	                        ▼
	reconciled view     [alpha RUNNING arn:1, beta STOPPED]

Live records come first, in the order the cluster returned them, with their
resolved public IP, name tag, status, ARN and launch type. Registered names with
no live task follow as synthetic STOPPED records that carry only the name.

A name never appears twice on the registry side of the view. When a live task
and a registry entry share a name, the live record wins.

The package is pure: it performs no I/O. Fetching tasks, resolving interfaces
and loading the registry is the manager's job.
*/
package reconciler
