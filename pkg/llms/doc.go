// Package llms defines the types used to talk to a chat-completion model:
// role-tagged text messages, call options and the Model interface
// implemented by the providers under pkg/llms.
package llms
