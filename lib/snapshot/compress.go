package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressorByName returns a built-in compressor by its stable name.
func CompressorByName(name string) (ICompressor, error) {
	switch name {
	case "zlib", "":
		return NewZlibCompressor(), nil
	case "zstd":
		return NewZstdCompressor(), nil
	case "lz4":
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid compressor %s (expected one of: zlib, zstd, lz4)", name)
	}
}

// --------------------------------------------------------------------------
// zlib
// --------------------------------------------------------------------------

// NewZlibCompressor creates a zlib compressor. zlib streams are what the
// .xdb format has always used, so this is the default.
func NewZlibCompressor() ICompressor {
	return &zlibImpl{}
}

type zlibImpl struct{}

func (z zlibImpl) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (z zlibImpl) Decompress(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

func (z zlibImpl) Name() string { return "zlib" }

// --------------------------------------------------------------------------
// zstd
// --------------------------------------------------------------------------

// NewZstdCompressor creates a zstd compressor. Encoder and decoder are created
// on first use and shared afterwards; EncodeAll and DecodeAll are safe for
// concurrent use.
func NewZstdCompressor() ICompressor {
	return &zstdImpl{}
}

type zstdImpl struct {
	once sync.Once
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	err  error
}

func (z *zstdImpl) init() error {
	z.once.Do(func() {
		z.enc, z.err = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if z.err != nil {
			return
		}
		z.dec, z.err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
	return z.err
}

func (z *zstdImpl) Compress(b []byte) ([]byte, error) {
	if err := z.init(); err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(b, nil), nil
}

func (z *zstdImpl) Decompress(b []byte) ([]byte, error) {
	if err := z.init(); err != nil {
		return nil, err
	}
	out, err := z.dec.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

func (z *zstdImpl) Name() string { return "zstd" }

// --------------------------------------------------------------------------
// lz4
// --------------------------------------------------------------------------

// NewLZ4Compressor creates a compressor writing lz4 frames.
func NewLZ4Compressor() ICompressor {
	return &lz4Impl{}
}

type lz4Impl struct{}

func (l lz4Impl) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l lz4Impl) Decompress(b []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}

func (l lz4Impl) Name() string { return "lz4" }
