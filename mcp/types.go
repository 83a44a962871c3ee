package mcp

import (
	"encoding/json"
)

// Supported methods
const (
	MethodInitialize   = "initialize"
	MethodToolsList    = "tools/list"
	MethodToolsExecute = "tools/execute"
)

// ProtocolVersion is reported by initialize
const ProtocolVersion = "1.0"

// Implementation describes a client or server
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities are the feature flags reported by initialize
type Capabilities struct {
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Prompts   bool `json:"prompts"`
}

// InitializeParams are the params of initialize
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion,omitempty"`
	ClientInfo      *Implementation `json:"clientInfo,omitempty"`
	Capabilities    map[string]any  `json:"capabilities,omitempty"`
}

// InitializeResult is the result of initialize
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ServerInfo      Implementation `json:"serverInfo"`
	Capabilities    Capabilities   `json:"capabilities"`
}

// ExecuteParams are the params of tools/execute
type ExecuteParams struct {
	ToolID     string          `json:"tool_id"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}
