package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/xdb/lib/snapshot"
	"github.com/ValentinKolb/xdb/lib/store/xstore"
	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Store configuration struct
// --------------------------------------------------------------------------

// StoreConfig holds all parameters needed to open a store from the CLI.
type StoreConfig struct {
	// Path of the store (the file extension is appended if missing)
	Path string
	// PrimaryKey is the indexed field ("" = no index)
	PrimaryKey string

	// background flush
	FlushTicks   int
	TickInterval time.Duration

	// snapshot format
	Codec      string
	Compressor string

	// Logging configuration
	LogLevel string
}

// ToOptions converts the config to xstore.Options. Unknown codec or
// compressor names are reported as errors.
func (c *StoreConfig) ToOptions(set *metrics.Set) (*xstore.Options, error) {
	codec, err := snapshot.CodecByName(c.Codec)
	if err != nil {
		return nil, err
	}
	compressor, err := snapshot.CompressorByName(c.Compressor)
	if err != nil {
		return nil, err
	}
	return &xstore.Options{
		PrimaryKey:   c.PrimaryKey,
		FlushTicks:   c.FlushTicks,
		TickInterval: c.TickInterval,
		Codec:        codec,
		Compressor:   compressor,
		Metrics:      set,
	}, nil
}

// String returns a formatted string representation of the configuration
func (c *StoreConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	orDefault := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}

	addSection("Store")
	addField("File", xstore.FilePath(c.Path))
	addField("Primary Key", orDefault(c.PrimaryKey, "(none)"))

	addSection("Background Flush")
	addField("Tick Interval", c.TickInterval.String())
	addField("Flush Every", fmt.Sprintf("%d ticks", c.FlushTicks))

	addSection("Snapshot Format")
	addField("Codec", orDefault(c.Codec, "go-json"))
	addField("Compressor", orDefault(c.Compressor, "zlib"))

	addSection("Logging")
	addField("Log Level", orDefault(c.LogLevel, "info"))

	return sb.String()
}
