package commsutil

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantErr   bool
		notObject bool
	}{
		{name: "object", data: `{"action":"HEALTHCHECK","token":"t"}`},
		{name: "whitespace around", data: " \n{\"a\":1}\n "},
		{name: "empty", data: "", wantErr: true},
		{name: "garbage", data: "{not json", wantErr: true},
		{name: "array", data: `[1,2]`, wantErr: true, notObject: true},
		{name: "string", data: `"hello"`, wantErr: true, notObject: true},
		{name: "null", data: `null`, wantErr: true, notObject: true},
		{name: "trailing object", data: `{"a":1}{"b":2}`, wantErr: true},
		{name: "trailing brace", data: `{"a":1}}`, wantErr: true},
		{name: "trailing bracket", data: `{"a":1}]`, wantErr: true},
		{name: "trailing comma", data: `{"a":1},`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := DecodeObject([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("commsutil:codec_test - expected error, got %v", obj)
				}
				if tt.notObject && !errors.Is(err, ErrNotObject) {
					t.Errorf("commsutil:codec_test - err = %v, want ErrNotObject", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("commsutil:codec_test - unexpected error: %v", err)
			}
			if len(obj) == 0 {
				t.Errorf("commsutil:codec_test - decoded empty object")
			}
		})
	}
}

func TestEncodePayload_Unserializable(t *testing.T) {
	if _, err := EncodePayload(make(chan int)); err == nil {
		t.Fatal("commsutil:codec_test - expected error for channel")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	type invoked struct {
		ActionID string `json:"actionId"`
		Ok       bool   `json:"ok"`
	}
	data, err := EncodePayload(invoked{ActionID: "HEALTHCHECK_V1", Ok: true})
	if err != nil {
		t.Fatalf("commsutil:codec_test - encode failed: %v", err)
	}
	var decoded invoked
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("commsutil:codec_test - decode failed: %v", err)
	}
	if decoded.ActionID != "HEALTHCHECK_V1" || !decoded.Ok {
		t.Errorf("commsutil:codec_test - decoded = %+v", decoded)
	}
}
