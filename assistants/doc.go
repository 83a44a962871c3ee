// Package assistants drives the conversation between the user, the model
// and the tool server. The model requests tools by embedding a JSON block in its
// text; the Agent extracts the call, executes it over RPC and feeds the result back
// until the model answers without a tool call.
package assistants

import "github.com/effective-security/xlog"

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "assistants")
