// Package transport defines the JSON-RPC 2.0 envelope shared by the tool
// server and its clients, and the interfaces implemented by the concrete
// transports in httptransport and localtransport.
package transport
