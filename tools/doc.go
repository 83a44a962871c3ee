// Package tools provides the tool registry served by the tool server.
package tools
