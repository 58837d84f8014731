// Package driving defines the interfaces that the CLI, the MCP server and
// the scheduler use to drive the application.
//
// Implementations live in internal/core/services.
package driving
