// Package cmd implements the command-line interface of dDoc. It provides
// commands for running the server and for using it as a client.
//
// The package is organized into several subpackages:
//
//   - hilo: Client commands for document id generation and Hi-Lo counters (next, return, get, set, perf)
//   - serve: Commands for starting and configuring the dDoc server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See ddoc -help for a list of all commands.
package cmd
