package bookingv1

import (
	"encoding/json"

	"google.golang.org/protobuf/proto"
)

// Codec carries the booking messages as JSON. Generated protobuf messages,
// such as those of the health service sharing the server, keep the binary
// protobuf encoding.
type Codec struct{}

func (Codec) Name() string {
	return "json"
}

func (Codec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
