// Package relay implements the real-time core: WebSocket connection
// registration, presence broadcast, message forwarding, and liveness
// supervision.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, frames, and the upgrade handler. The hub's event
// loop is the single writer for all registry state; client pumps and HTTP
// handlers communicate with it over channels.
package relay
