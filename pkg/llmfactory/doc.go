// Package llmfactory creates completion models from configuration.
package llmfactory
