// Package rpc defines the Connect surface of the group store: procedure names,
// messages, handler and client constructors. Messages are plain Go structs carried
// by a JSON codec.
package rpc

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// jsonCodec marshals messages with encoding/json. It replaces Connect's default
// "json" codec, which only accepts protobuf messages.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", msg, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", msg, err)
	}
	return nil
}

// WithJSON is the codec option handlers and clients of this package must share.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
