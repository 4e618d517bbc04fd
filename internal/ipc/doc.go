// Package ipc exposes the running daemon over JSON-RPC on a Unix socket and
// ships the matching client used by the CLI.
//
// It owns the socket lifecycle and the request/response DTOs. The wire types
// are flattened copies of the daemon status so the CLI does not depend on
// loop internals.
package ipc
