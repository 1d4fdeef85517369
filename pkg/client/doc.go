// Package client is a Go client for the burrow HTTP API.
//
// Client has the same List, Create, Stop and Delete methods as
// manager.Manager, so the CLI can drive a remote `burrow serve` instance with
// --server instead of calling AWS directly. Errors the server mapped to 400,
// 409 and 412 come back as the matching manager error types.
package client
