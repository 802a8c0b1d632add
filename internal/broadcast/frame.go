package broadcast

import (
	jsoniter "github.com/json-iterator/go"

	"timestick/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message types on the websocket.
const (
	TypeDeviceUpdate = "device_update"
	TypeRequestData  = "request_data"
)

// Frame is the envelope for every websocket message.
type Frame struct {
	Type string        `json:"type"`
	Data *model.Report `json:"data,omitempty"`
}

// EncodeReport wraps r in a device_update frame.
func EncodeReport(r model.Report) ([]byte, error) {
	return json.Marshal(Frame{Type: TypeDeviceUpdate, Data: &r})
}

// DecodeFrame parses a frame received from the other side.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(b, &f)
	return f, err
}
