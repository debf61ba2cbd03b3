package xstore

import (
	"strings"
	"time"

	"github.com/ValentinKolb/xdb/lib/snapshot"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// FileExtension is appended to the store path to form the snapshot file name.
	FileExtension = ".xdb"

	defaultFlushTicks   = 5           // ticks between two dirty checks
	defaultTickInterval = time.Second // length of one tick
)

// Logger is the logger used by stores opened without an explicit logger.
var Logger = logger.GetLogger("xstore")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a store during Open.
type Options struct {
	// PrimaryKey is the field indexed for GetByKey / SetByKey / RemoveByKey ("" = no index).
	PrimaryKey string
	// FlushTicks is the number of ticks between two checks of the dirty flag (0 = default: 5).
	FlushTicks int
	// TickInterval is the length of one tick (0 = default: 1 sec).
	TickInterval time.Duration
	// Codec encodes the primary table (nil = go-json).
	Codec snapshot.ISnapshotCodec
	// Compressor compresses the encoded table (nil = zlib).
	Compressor snapshot.ICompressor
	// Logger receives flush and lifecycle messages (nil = package Logger).
	Logger logger.ILogger
	// Metrics is the set the store registers its metrics in (nil = a new set per store).
	Metrics *metrics.Set
}

// DefaultOptions returns the default store options (no primary key).
func DefaultOptions() *Options {
	return &Options{
		FlushTicks:   defaultFlushTicks,
		TickInterval: defaultTickInterval,
		Codec:        snapshot.NewGoJSONCodec(),
		Compressor:   snapshot.NewZlibCompressor(),
		Logger:       Logger,
	}
}

// withDefaults returns a copy of o with every unset field filled in.
func (o *Options) withDefaults() Options {
	out := *DefaultOptions()
	if o == nil {
		out.Metrics = metrics.NewSet()
		return out
	}
	out.PrimaryKey = o.PrimaryKey
	if o.FlushTicks > 0 {
		out.FlushTicks = o.FlushTicks
	}
	if o.TickInterval > 0 {
		out.TickInterval = o.TickInterval
	}
	if o.Codec != nil {
		out.Codec = o.Codec
	}
	if o.Compressor != nil {
		out.Compressor = o.Compressor
	}
	if o.Logger != nil {
		out.Logger = o.Logger
	}
	out.Metrics = o.Metrics
	if out.Metrics == nil {
		out.Metrics = metrics.NewSet()
	}
	return out
}

// FilePath returns the snapshot file used for the store path p.
func FilePath(p string) string {
	if strings.HasSuffix(p, FileExtension) {
		return p
	}
	return p + FileExtension
}
