// Package mcp implements the tool server RPC methods and a client for them.
//
// The server exposes three methods over JSON-RPC 2.0:
//
//	initialize     returns server info and capabilities
//	tools/list     returns the tool descriptors in registration order
//	tools/execute  runs a tool by id and returns a bare number
//
// Transports live in the transport sub-packages.
package mcp
