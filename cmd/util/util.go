package util

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/xdb/lib/common"
	"github.com/ValentinKolb/xdb/lib/lifecycle"
	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/ValentinKolb/xdb/lib/store/xstore"
	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

var (
	// Logger is the logger of the command line tool
	Logger = logger.GetLogger("cli")

	// Metrics is the set all stores opened by the command line tool register in.
	Metrics = metrics.NewSet()
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig initializes configuration from env files and environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("xdb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupStoreFlags adds the flags needed to open a store to a command group.
// defaultPath is the store used when --path is not given ("" = required).
func SetupStoreFlags(cmd *cobra.Command, defaultPath string) {
	key := "path"
	cmd.PersistentFlags().String(key, defaultPath, WrapString("Path of the store file (the .xdb extension is appended if missing)"))

	key = "codec"
	cmd.PersistentFlags().String(key, "go-json", WrapString("Codec of the snapshot file (go-json, json). Both produce the same format"))

	key = "compressor"
	cmd.PersistentFlags().String(key, "zlib", WrapString("Compression of the snapshot file (zlib, zstd, lz4). Must match the compression the file was written with"))

	key = "flush-ticks"
	cmd.PersistentFlags().Int(key, 5, WrapString("Number of ticks between two checks for unsaved changes"))

	key = "tick-interval"
	cmd.PersistentFlags().Duration(key, time.Second, WrapString("Length of one tick of the background flush"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// BindCommandFlags binds a command's flags to viper and initializes the loggers
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// GetStoreConfig reads the store configuration from viper
func GetStoreConfig() *common.StoreConfig {
	return &common.StoreConfig{
		Path:         viper.GetString("path"),
		PrimaryKey:   viper.GetString("primary-key"),
		FlushTicks:   viper.GetInt("flush-ticks"),
		TickInterval: viper.GetDuration("tick-interval"),
		Codec:        viper.GetString("codec"),
		Compressor:   viper.GetString("compressor"),
		LogLevel:     viper.GetString("log-level"),
	}
}

// OpenStore opens the store described by conf and registers it in the
// lifecycle manager of the command.
func OpenStore(cmd *cobra.Command, conf *common.StoreConfig) (*xstore.Store, error) {
	opts, err := StoreOptions(conf)
	if err != nil {
		return nil, err
	}
	s, err := xstore.Open(conf.Path, opts)
	if err != nil {
		return nil, err
	}
	if err := Register(cmd, s.Path(), s); err != nil {
		_ = s.Stop()
		return nil, err
	}
	Logger.Debugf("using store %s\n%s", s.Path(), conf)
	return s, nil
}

// StoreOptions converts conf to store options using the shared metric set.
func StoreOptions(conf *common.StoreConfig) (*xstore.Options, error) {
	if conf.Path == "" {
		return nil, fmt.Errorf("no store path given (use --path or XDB_PATH)")
	}
	return conf.ToOptions(Metrics)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

type storesKey struct{}

// WithStores returns a context carrying the lifecycle manager m.
func WithStores(ctx context.Context, m *lifecycle.Manager) context.Context {
	return context.WithValue(ctx, storesKey{}, m)
}

// Register adds s to the lifecycle manager carried by the command context.
// The owner of the manager (cmd.Execute) stops it before the process exits.
func Register(cmd *cobra.Command, name string, s lifecycle.Stopper) error {
	m, ok := cmd.Context().Value(storesKey{}).(*lifecycle.Manager)
	if !ok {
		return fmt.Errorf("register %s: no lifecycle manager in command context", name)
	}
	return m.Register(name, s)
}

// --------------------------------------------------------------------------
// Parsing
// --------------------------------------------------------------------------

// ParseValue parses a command line argument as JSON. Arguments that are not
// valid JSON are taken as plain strings.
func ParseValue(arg string) record.Value {
	var v record.Value
	if err := v.UnmarshalJSON([]byte(arg)); err == nil {
		return v
	}
	return record.String(arg)
}

// ParseFields parses name=value arguments into record fields.
func ParseFields(args []string) ([]record.Field, error) {
	fields := make([]record.Field, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q (expected name=value)", arg)
		}
		fields = append(fields, record.F(name, ParseValue(value)))
	}
	return fields, nil
}

// FormatRecord renders a record as one line of JSON.
func FormatRecord(r *record.Record) (string, error) {
	b, err := r.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(b)), nil
}
