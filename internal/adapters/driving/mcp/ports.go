package mcp

import (
	"github.com/custodia-labs/listingsync/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Listing reads locally synced accounts, locations and reviews.
	Listing driving.ListingService

	// Sync runs account syncs. Optional; the sync tool is not registered without it.
	Sync driving.SyncOrchestrator

	// Reviews publishes replies. Optional; the reply tool is not registered without it.
	Reviews driving.ReviewSyncer
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Listing == nil {
		return ErrMissingListingService
	}
	return nil
}
