package ws

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Subprotocols a client may request. Pages embed chart images, so the
// compressed variant sends zstd-compressed JSON in binary frames.
const (
	ProtocolJSON     = "sp500.json.v1"
	ProtocolJSONZstd = "sp500.json.zstd.v1"
)

// Encoder turns downstream messages into frame payloads.
type Encoder struct {
	zstdEncoder *zstd.Encoder
}

func NewEncoder() (*Encoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Encoder{zstdEncoder: enc}, nil
}

// Encode marshals msg and compresses it when the protocol asks for it.
func (e *Encoder) Encode(protocol string, msg Downstream) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s message: %w", msg.Type, err)
	}
	if protocol == ProtocolJSONZstd {
		return e.zstdEncoder.EncodeAll(data, nil), nil
	}
	return data, nil
}

// Close releases encoder resources.
func (e *Encoder) Close() {
	if e.zstdEncoder != nil {
		e.zstdEncoder.Close()
	}
}
