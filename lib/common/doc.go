// Package common provides the utilities shared by the xdb command line tool
// and the packages built on top of the store.
//
// Key Components:
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system (github.com/lni/dragonboat/v4/logger) while providing a
//     consistent format across the application:
//
//     2025/01/02 15:04:05 INFO  | xstore          | opened data/sessions.xdb (3 records, ...)
//
//     InitLoggers installs the factory and sets the level of every xdb
//     component. Packages obtain their logger with logger.GetLogger(name).
//
//   - StoreConfig: Configuration of a single store as assembled by the CLI
//     from flags, environment variables and .env files. It converts to
//     xstore.Options and prints itself in a human readable form.
package common
