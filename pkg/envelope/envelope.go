// Package envelope builds the uniform {ok, data|error, meta} response body.
package envelope

import (
	"encoding/json"
	"errors"

	"github.com/morezero/action-gateway/pkg/actions"
)

// Envelope is the response body for every action call. Exactly one of Data or Error is
// serialized: "data" when Ok is true (even when the value is null), "error" otherwise.
type Envelope struct {
	Ok    bool
	Data  interface{}
	Error *ErrorBody
	Meta  *Meta
}

// ErrorBody is the caller-facing error. Code is either an HTTP-style number or a string category.
type ErrorBody struct {
	Message string      `json:"message"`
	Code    interface{} `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Meta carries non-sensitive request metadata.
type Meta struct {
	ActionID     string `json:"actionId,omitempty"`
	PublicAction string `json:"publicAction,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
	Initiator    string `json:"initiator,omitempty"`
	V            int    `json:"v,omitempty"`
	ErrorID      string `json:"errorId,omitempty"`
}

type successWire struct {
	Ok   bool        `json:"ok"`
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

type failureWire struct {
	Ok    bool       `json:"ok"`
	Error *ErrorBody `json:"error"`
	Meta  *Meta      `json:"meta,omitempty"`
}

// MarshalJSON emits "data" on success and "error" on failure, never both.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Ok {
		return json.Marshal(successWire{Ok: true, Data: e.Data, Meta: e.Meta})
	}
	body := e.Error
	if body == nil {
		body = &ErrorBody{Message: "Unknown error"}
	}
	return json.Marshal(failureWire{Ok: false, Error: body, Meta: e.Meta})
}

// UnmarshalJSON reads either wire shape back into an Envelope.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var raw struct {
		Ok    bool            `json:"ok"`
		Data  json.RawMessage `json:"data"`
		Error *ErrorBody      `json:"error"`
		Meta  *Meta           `json:"meta"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*e = Envelope{Ok: raw.Ok, Meta: raw.Meta}
	if raw.Ok {
		if len(raw.Data) > 0 {
			if err := json.Unmarshal(raw.Data, &e.Data); err != nil {
				return err
			}
		}
		return nil
	}
	e.Error = raw.Error
	return nil
}

// OK builds a success envelope. data is carried as given; false, 0 and "" are valid results.
func OK(data interface{}, meta *Meta) Envelope {
	return Envelope{Ok: true, Data: data, Meta: meta}
}

// Err builds a failure envelope. messageOrError may be a string, an error or an
// *actions.ActionError; only its message reaches the body.
func Err(messageOrError interface{}, code interface{}, meta *Meta) Envelope {
	body := &ErrorBody{Message: messageOf(messageOrError), Code: code}
	if ae, ok := messageOrError.(*actions.ActionError); ok {
		body.Details = ae.Details
	}
	return Envelope{Ok: false, Error: body, Meta: meta}
}

// FromError converts a pipeline error into a failure envelope, using the ActionError status as
// the code. Other errors get fallbackCode.
func FromError(err error, fallbackCode interface{}, meta *Meta) Envelope {
	var ae *actions.ActionError
	if errors.As(err, &ae) {
		return Err(ae, ae.Status, meta)
	}
	return Err(err, fallbackCode, meta)
}

// StatusCode returns the numeric error code of a failure envelope, or 0 when the code is absent
// or not numeric.
func (e Envelope) StatusCode() int {
	if e.Ok || e.Error == nil {
		return 0
	}
	switch c := e.Error.Code.(type) {
	case int:
		return c
	case float64:
		return int(c)
	default:
		return 0
	}
}

func messageOf(v interface{}) string {
	switch m := v.(type) {
	case nil:
		return "Unknown error"
	case string:
		return m
	case *actions.ActionError:
		return m.Message
	case error:
		return m.Error()
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return "Unknown error"
		}
		return string(b)
	}
}
