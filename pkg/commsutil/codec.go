package commsutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// ErrNotObject is returned by DecodeObject when the payload is valid JSON but not an object.
var ErrNotObject = errors.New("payload is not a JSON object")

// ErrTrailingData is returned by DecodeObject when anything but whitespace follows the object.
var ErrTrailingData = errors.New("unexpected data after JSON object")

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeObject decodes a single JSON object. Empty input, trailing data, arrays, scalars and null
// are rejected.
func DecodeObject(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotObject
		}
		return nil, err
	}
	if obj == nil {
		return nil, ErrNotObject
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return obj, nil
}
