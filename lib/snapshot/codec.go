package snapshot

import (
	"encoding/json"
	"fmt"

	gojson "github.com/goccy/go-json"
)

// CodecByName returns a built-in codec by its stable name.
func CodecByName(name string) (ISnapshotCodec, error) {
	switch name {
	case "json":
		return NewJSONCodec(), nil
	case "go-json", "":
		return NewGoJSONCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec %s (expected one of: json, go-json)", name)
	}
}

// --------------------------------------------------------------------------
// encoding/json
// --------------------------------------------------------------------------

// NewJSONCodec creates a codec using the standard library json package
func NewJSONCodec() ISnapshotCodec {
	return &jsonCodecImpl{}
}

type jsonCodecImpl struct{}

func (j jsonCodecImpl) Marshal(t Table) ([]byte, error) {
	return json.Marshal(t)
}

func (j jsonCodecImpl) Unmarshal(b []byte) (Table, error) {
	t := Table{}
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return t, nil
}

func (j jsonCodecImpl) Name() string { return "json" }

// --------------------------------------------------------------------------
// goccy/go-json
// --------------------------------------------------------------------------

// NewGoJSONCodec creates a codec backed by github.com/goccy/go-json.
// The output is plain JSON and can be read by the json codec as well.
func NewGoJSONCodec() ISnapshotCodec {
	return &goJSONCodecImpl{}
}

type goJSONCodecImpl struct{}

func (g goJSONCodecImpl) Marshal(t Table) ([]byte, error) {
	return gojson.Marshal(t)
}

func (g goJSONCodecImpl) Unmarshal(b []byte) (Table, error) {
	t := Table{}
	if err := gojson.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return t, nil
}

func (g goJSONCodecImpl) Name() string { return "go-json" }
