// Package callbacks provides implementations of assistants.Callback
// for printing, logging and collecting statistics of conversation turns.
package callbacks
