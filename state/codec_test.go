package state_test

import (
	"testing"

	"github.com/musicyyai/MusicAI-Generator-by-Yajurva/state"
)

func TestGetCodec(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		wantErr  bool
	}{
		{"json", state.CodecNameJSON, false},
		{"msgpack", state.CodecNameMsgpack, false},
		{"", state.CodecNameJSON, false},
		{"protobuf", "", true},
		{"JSON", "", true},
	}
	for _, tt := range tests {
		codec, err := state.GetCodec(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("GetCodec(%q) error = nil, want unknown-codec error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("GetCodec(%q) error: %v", tt.name, err)
			continue
		}
		if codec.Name() != tt.wantName {
			t.Errorf("GetCodec(%q).Name() = %q, want %q", tt.name, codec.Name(), tt.wantName)
		}
	}
}
