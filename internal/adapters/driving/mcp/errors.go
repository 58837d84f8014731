// Package mcp exposes the synced listing data and the sync and reply
// operations over the Model Context Protocol.
package mcp

import "errors"

// ErrMissingListingService is returned when the listing service is not provided.
var ErrMissingListingService = errors.New("mcp: listing service is required")
