package snapshot

import (
	"errors"

	"github.com/ValentinKolb/xdb/lib/record"
)

// Table is the primary table of a store: identifier -> record.
type Table map[string]*record.Record

// ErrCorrupt is wrapped by every error caused by undecodable snapshot content.
var ErrCorrupt = errors.New("corrupt snapshot")

// ISnapshotCodec turns a Table into a structured-data text encoding and back.
type ISnapshotCodec interface {
	// Marshal encodes the table. It must not modify the table.
	Marshal(t Table) ([]byte, error)
	// Unmarshal decodes a table previously produced by Marshal.
	Unmarshal(b []byte) (Table, error)
	// Name returns the stable name of the codec.
	Name() string
}

// ICompressor is a general-purpose lossless compressor applied to the encoded table.
type ICompressor interface {
	// Compress returns the compressed form of b.
	Compress(b []byte) ([]byte, error)
	// Decompress reverses Compress.
	Decompress(b []byte) ([]byte, error)
	// Name returns the stable name of the compressor.
	Name() string
}
