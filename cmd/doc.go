// Package cmd implements the command-line interface of mlsrelay. It provides a
// hierarchical command structure for running the relay server and for talking
// to it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the relay server
//   - relay: Client commands for key bundles (bundle), groups (group) and a load test (perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as an environment variable with the MLSRELAY_ prefix
// (e.g. MLSRELAY_TRANSPORT_ENDPOINTS) or in a config file passed with --config.
//
// See mlsrelay -help for a list of all commands.
package cmd
