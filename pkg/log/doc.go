/*
Package log provides structured logging for burrow using zerolog.

A single global Logger is configured once through Init, normally from the CLI's
--log-level and --log-json flags. Until Init runs the logger discards output, so
library callers that never configure logging stay silent.

Components derive child loggers rather than logging through the global directly:

	logger := log.WithCluster("manager", "my-cluster")
	logger.Info().Str("task_name", name).Msg("task created")

Output is a human readable console format by default and newline-delimited JSON
when JSONOutput is set. Logs are written to stderr so that `burrow list -o json`
can be piped without filtering.
*/
package log
