// Package domain defines the core business entities for listingsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Account: an external business-listing account and its OAuth credentials
//   - Location: a business location owned by an Account
//   - Review: a customer review left on a Location
//   - Resource names: parsing and formatting of accounts/{a}/locations/{l}/reviews/{r}
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
