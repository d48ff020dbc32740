// Package ipc carries method calls from UI clients to the daemon over
// JSON-RPC on a Unix domain socket, and ships the matching client.
//
// The wire surface is deliberately small: Invoke forwards a method name and
// its argument mapping to the command bridge and returns the bridge result
// unchanged; Status reports what the engine is doing for diagnostics. The
// client wraps every call with a context so CLI commands fail fast when the
// daemon is offline.
package ipc
