// Package chatmodel carries the conversation identity in context.Context.
package chatmodel
