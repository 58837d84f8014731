// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - AuthorizationClient: OAuth code and refresh-token grants
//   - ListingClient: paged reads of accounts, locations and reviews, reply writes
//   - AccountStore: accounts and their (sealed) credentials
//   - LocationStore: locations keyed by (account, external ID)
//   - ReviewStore: reviews keyed by (location, external ID)
//   - ConfigStore: application configuration
//   - SchedulerStore: background task state and run history
//   - TokenCipher: at-rest sealing of tokens, used by persistent stores
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
