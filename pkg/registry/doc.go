/*
Package registry persists the names of tasks launched through burrow.

The live cluster only knows about tasks that still exist. The registry remembers
every name burrow created until it is explicitly deleted, which lets the task
list report tasks that were stopped externally or crashed as STOPPED instead of
dropping them.

Two backends implement Store:

	FileStore  JSON object at <cwd>/instance_metadata.json ({"name": {}, ...})
	BoltStore  bbolt database, one key per name in the "names" bucket

FileStore rewrites the whole file on each mutation. Writes are atomic (temp file
plus rename) but there is no cross-process lock: two operators mutating the same
file at once can lose an update. BoltStore serializes writers through bbolt's
file lock and single-transaction updates; use it when more than one process
shares a registry.

A registry that exists but cannot be decoded yields *CorruptionError. It is
never reset to empty, since that would erase the record of created tasks.
*/
package registry
