package util

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/xdb/lib/common"
	"github.com/ValentinKolb/xdb/lib/lifecycle"
	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/spf13/cobra"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line longer than %d chars: %q", Wrap, line)
		}
	}
	if got := WrapString("short text"); got != "short text" {
		t.Errorf("WrapString(short) = %q", got)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want record.Value
	}{
		{"42", record.Number(42)},
		{"true", record.Bool(true)},
		{"null", record.Null()},
		{`"quoted"`, record.String("quoted")},
		{"plain text", record.String("plain text")},
		{"[1,2]", record.Array(record.Number(1), record.Number(2))},
		{"{broken", record.String("{broken")},
		{"5}", record.String("5}")},
		{"[1]]", record.String("[1]]")},
	}

	for _, tt := range tests {
		if got := ParseValue(tt.in); !got.Equal(tt.want) {
			t.Errorf("ParseValue(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields([]string{"name=web", "port=8080", "expr=a=b"})
	if err != nil {
		t.Fatalf("ParseFields failed: %v", err)
	}
	r, err := record.FromFields(fields...)
	if err != nil {
		t.Fatalf("FromFields failed: %v", err)
	}
	want := `{"name":"web","port":8080,"expr":"a=b"}`
	if got := r.String(); got != want {
		t.Errorf("record = %s, want %s", got, want)
	}

	for _, bad := range []string{"novalue", "=value"} {
		if _, err := ParseFields([]string{bad}); err == nil {
			t.Errorf("ParseFields(%q) should fail", bad)
		}
	}
}

func TestOpenStoreRegistersInCommandContext(t *testing.T) {
	stores := lifecycle.NewManager()
	cmd := &cobra.Command{}
	cmd.SetContext(WithStores(context.Background(), stores))

	conf := &common.StoreConfig{
		Path:         filepath.Join(t.TempDir(), "cli"),
		FlushTicks:   5,
		TickInterval: time.Hour,
	}
	s, err := OpenStore(cmd, conf)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	id, err := s.Create(record.F("a", 1))
	if err != nil {
		t.Fatal(err)
	}

	names := stores.Names()
	if len(names) != 1 || names[0] != s.Path() {
		t.Fatalf("registered stores = %v", names)
	}
	if err := stores.StopAll(); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	// the reopened store sees the record saved by StopAll
	s, err = OpenStore(cmd, conf)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer stores.StopAll()
	if _, ok, _ := s.GetByID(id); !ok {
		t.Errorf("record was not saved on shutdown")
	}

	if _, err := OpenStore(cmd, &common.StoreConfig{}); err == nil {
		t.Errorf("OpenStore without path should fail")
	}
}

func TestRegisterWithoutManager(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	if err := Register(cmd, "x", lifecycle.Stopper(nil)); err == nil {
		t.Error("Register without a lifecycle manager should fail")
	}
}
