package state

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec defines the serialization contract for the state record.
type Codec interface {
	// Encode serializes a value to bytes.
	Encode(v any) ([]byte, error)

	// Decode deserializes bytes into v.
	Decode(data []byte, v any) error

	// Name returns the codec identifier (e.g., "json", "msgpack").
	Name() string
}

// Codec name constants for configuration.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. The empty name selects JSON; an
// unknown name is a configuration error, not a silent fallback.
func GetCodec(name string) (Codec, error) {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}, nil
	case CodecNameJSON, "":
		return &JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("state: unknown codec %q", name)
	}
}

// JSONCodec encodes/decodes the state record as indented JSON, which
// keeps the on-disk file inspectable during incidents.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (c *JSONCodec) Name() string { return CodecNameJSON }

// MsgpackCodec encodes/decodes the state record as MessagePack.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (c *MsgpackCodec) Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (c *MsgpackCodec) Name() string { return CodecNameMsgpack }
