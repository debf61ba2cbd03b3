// Package cmd implements the command-line interface for the xdb object store.
// It provides a hierarchical command structure for working with store files
// directly from the shell.
//
// The package is organized into several subpackages:
//
//   - db: Commands for generic store operations (info, dump, create, get, set, rm, metrics)
//   - session: Commands for a session store (create, get, delete, delete-all, gc)
//   - server: Commands for the server list (add, list, update, rm)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every store opened by a command is registered in a lifecycle manager and
// stopped before the process exits, so all changes are written to disk.
//
// See xdb -help for a list of all commands.
package cmd
