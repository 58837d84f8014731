// Package services implements the driving port interfaces: the credential
// lifecycle, location and review sync, reply publishing, the sync
// orchestrator, the scheduler and typed settings.
//
// Services depend only on domain and the port interfaces.
package services
