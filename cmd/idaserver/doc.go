// Package main (cmd/idaserver) serves the blob API of the persistence engine.
//
// The server reads a TOML configuration describing the dispersal algorithm,
// the fragment repositories, the metadata database and optional encryption,
// assembles the engine and exposes it over HTTP. On SIGINT or SIGTERM it
// marks itself not ready, waits --drain-seconds for load balancers to notice
// and then shuts down gracefully.
//
// Example usage:
//
//	idaserver --config=/etc/ida/engine.toml \
//	    --listen-addr=0.0.0.0:8080 \
//	    --log-json --log-uid
package main
