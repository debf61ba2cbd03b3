package snapshot

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/xdb/lib/record"
)

// Engine saves and loads whole tables: encode, compress and atomically
// replace on save; read, decompress and decode on load.
//
// Thread-safety: An Engine holds no mutable state of its own. Callers must
// make sure the table is not modified while Save runs.
type Engine struct {
	Codec      ISnapshotCodec
	Compressor ICompressor
}

// NewEngine creates an engine. nil arguments select the defaults (go-json, zlib).
func NewEngine(codec ISnapshotCodec, compressor ICompressor) *Engine {
	if codec == nil {
		codec = NewGoJSONCodec()
	}
	if compressor == nil {
		compressor = NewZlibCompressor()
	}
	return &Engine{Codec: codec, Compressor: compressor}
}

// Encode turns the table into the bytes stored on disk.
func (e *Engine) Encode(t Table) ([]byte, error) {
	raw, err := e.Codec.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot (%s): %w", e.Codec.Name(), err)
	}
	compressed, err := e.Compressor.Compress(raw)
	if err != nil {
		return nil, fmt.Errorf("compress snapshot (%s): %w", e.Compressor.Name(), err)
	}
	return compressed, nil
}

// Decode reverses Encode and checks that every record carries the
// identifier it is stored under.
func (e *Engine) Decode(b []byte) (Table, error) {
	raw, err := e.Compressor.Decompress(b)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot (%s): %w", e.Compressor.Name(), err)
	}
	t, err := e.Codec.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot (%s): %w", e.Codec.Name(), err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: snapshot is not an object", ErrCorrupt)
	}
	for id, r := range t {
		if r == nil {
			return nil, fmt.Errorf("%w: record %q is null", ErrCorrupt, id)
		}
		if r.ID() != id {
			return nil, fmt.Errorf("%w: record %q carries %s %q", ErrCorrupt, id, record.IDField, r.ID())
		}
	}
	return t, nil
}

// Save writes the table to path and returns the number of bytes written.
func (e *Engine) Save(path string, t Table) (int, error) {
	b, err := e.Encode(t)
	if err != nil {
		return 0, err
	}
	if err := WriteFileAtomic(path, b); err != nil {
		return 0, fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return len(b), nil
}

// Load reads the table stored at path.
func (e *Engine) Load(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	t, err := e.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", path, err)
	}
	return t, nil
}
