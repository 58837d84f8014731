// Package file provides the TOML configuration file adapter.
//
// Keys are addressed in dot notation ("sync.max_attempts") and written as
// nested tables, so the file reads naturally:
//
//	[sync]
//	max_attempts = 3
package file
