package common

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lni/dragonboat/v4/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.LogLevel
		wantErr bool
	}{
		{"debug", logger.DEBUG, false},
		{"INFO", logger.INFO, false},
		{"", logger.INFO, false},
		{"warn", logger.WARNING, false},
		{"warning", logger.WARNING, false},
		{"error", logger.ERROR, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitLoggersRejectsInvalidLevel(t *testing.T) {
	if err := InitLoggers("loud"); err == nil {
		t.Error("expected an error for an invalid level")
	}
}

func TestLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("xstore", &buf)

	l.Debugf("hidden %d", 1)
	l.Infof("opened %s", "a.xdb")
	l.SetLevel(logger.ERROR)
	l.Warningf("hidden too")
	l.Errorf("broken")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level were written: %q", out)
	}
	if !strings.Contains(out, "INFO  | xstore          | opened a.xdb") {
		t.Errorf("unexpected info line: %q", out)
	}
	if !strings.Contains(out, "ERROR | xstore          | broken") {
		t.Errorf("unexpected error line: %q", out)
	}
}

func TestLoggerPanicf(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("xstore", &buf)
	l.SetLevel(logger.ERROR)

	defer func() {
		if r := recover(); r != "index lost" {
			t.Errorf("recovered %v, want the formatted message", r)
		}
		if !strings.Contains(buf.String(), "PANIC | xstore          | index lost") {
			t.Errorf("panic was not logged: %q", buf.String())
		}
	}()
	l.Panicf("index %s", "lost")
}

func TestLoggerSetLevelWhileLogging(t *testing.T) {
	l := NewLogger("xstore", io.Discard)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			l.Infof("tick %d", i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			l.SetLevel(logger.LogLevel(i % 2 * int(logger.DEBUG)))
		}
	}()
	wg.Wait()
}

func TestStoreConfigToOptions(t *testing.T) {
	c := &StoreConfig{
		Path:         "data/sessions",
		PrimaryKey:   "sessionId",
		FlushTicks:   3,
		TickInterval: 200 * time.Millisecond,
		Codec:        "json",
		Compressor:   "zstd",
	}

	opts, err := c.ToOptions(nil)
	if err != nil {
		t.Fatalf("ToOptions failed: %v", err)
	}
	if opts.PrimaryKey != "sessionId" || opts.FlushTicks != 3 || opts.TickInterval != 200*time.Millisecond {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.Codec.Name() != "json" || opts.Compressor.Name() != "zstd" {
		t.Errorf("unexpected format: %s/%s", opts.Codec.Name(), opts.Compressor.Name())
	}

	c.Codec = "xml"
	if _, err := c.ToOptions(nil); err == nil {
		t.Error("expected an error for an unknown codec")
	}
	c.Codec, c.Compressor = "", "brotli"
	if _, err := c.ToOptions(nil); err == nil {
		t.Error("expected an error for an unknown compressor")
	}
}

func TestStoreConfigString(t *testing.T) {
	c := &StoreConfig{Path: "data/servers", FlushTicks: 5, TickInterval: time.Second}
	s := c.String()

	for _, want := range []string{
		"STORE\n",
		"  File                  : data/servers.xdb\n",
		"  Primary Key           : (none)\n",
		"  Codec                 : go-json\n",
		"  Compressor            : zlib\n",
		"  Flush Every           : 5 ticks\n",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("String() misses %q:\n%s", want, s)
		}
	}
}
