// Package snapshot implements the persistence engine of the object store: the
// on-disk encoding of a store's primary table and the crash-safe protocol used
// to write it.
//
// File Format:
//
//	A snapshot file holds the compressed bytes of a JSON object mapping every
//	record identifier to its record. No header, magic number or version marker
//	is written. The codec and the compressor must therefore be configured the
//	same way for every process opening a file; a mismatch surfaces as a
//	decompression or decode error when loading. The primary-key index is not
//	persisted, stores rebuild it from the table.
//
// Key Components:
//
//   - ISnapshotCodec: Encodes a Table as JSON. Two interchangeable implementations
//     exist, "json" (standard library) and "go-json" (github.com/goccy/go-json,
//     default). Both write plain JSON, so files written by one can be read by the
//     other.
//
//   - ICompressor: "zlib" (default, github.com/klauspost/compress/zlib), "zstd"
//     (github.com/klauspost/compress/zstd) and "lz4" (github.com/pierrec/lz4/v4).
//
//   - Engine: Combines a codec and a compressor. Save encodes, compresses and calls
//     WriteFileAtomic. Load reads, decompresses, decodes and validates that every
//     record carries the identifier it is stored under.
//
//   - WriteFileAtomic: Writes to a temporary file next to the target, syncs it and
//     renames it over the target. Parent directories are created when missing.
//
// Errors:
//
//	Every error caused by undecodable content wraps ErrCorrupt. I/O errors are
//	wrapped with the path they occurred on.
package snapshot
