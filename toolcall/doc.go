// Package toolcall extracts a tool invocation from free-form model output.
//
// The model is asked to reply with a fenced json block:
//
//	```json
//	{"tool": "add", "parameters": {"a": 5, "b": 10}}
//	```
//
// but replies are not guaranteed to be clean, so the Extractor applies an
// ordered chain of strategies, first match wins. Every strategy produces
// candidate substrings in reading order and the shared Parse predicate
// decides whether a candidate is a call.
package toolcall
