// Package compute is the client for the remote OEE calculation service,
// the one side-effecting boundary of the analysis engine. It speaks
// HTTP+JSON against the service's /calculate family of endpoints, maps
// transport failures to typed NETWORK_ERROR/TIMEOUT errors, surfaces
// well-formed API error bodies verbatim, and optionally hardens
// round-trips with retry-with-backoff.
package compute
