package envelope

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/morezero/action-gateway/pkg/actions"
)

const testPrefix = "envelope:envelope_test"

func decodeMap(t *testing.T, e Envelope) map[string]interface{} {
	t.Helper()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("%s - marshal: %v", testPrefix, err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("%s - unmarshal: %v", testPrefix, err)
	}
	return m
}

func TestOK_KeepsFalsyData(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
		want string
	}{
		{"false", false, `{"ok":true,"data":false}`},
		{"zero", 0, `{"ok":true,"data":0}`},
		{"empty string", "", `{"ok":true,"data":""}`},
		{"nil", nil, `{"ok":true,"data":null}`},
		{"object", map[string]string{"status": "ok"}, `{"ok":true,"data":{"status":"ok"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(OK(tt.data, nil))
			if err != nil {
				t.Fatalf("%s - marshal: %v", testPrefix, err)
			}
			if string(b) != tt.want {
				t.Errorf("%s - got %s, want %s", testPrefix, b, tt.want)
			}
		})
	}
}

func TestErr_Shapes(t *testing.T) {
	meta := &Meta{ActionID: "HEALTHCHECK_V1", RequestID: "ab12cd34", Initiator: "Unknown", V: 1}

	m := decodeMap(t, Err("Unauthorized", 401, meta))
	if m["ok"] != false {
		t.Errorf("%s - ok = %v, want false", testPrefix, m["ok"])
	}
	if _, has := m["data"]; has {
		t.Errorf("%s - failure envelope carries data", testPrefix)
	}
	errBody := m["error"].(map[string]interface{})
	if errBody["message"] != "Unauthorized" || errBody["code"] != float64(401) {
		t.Errorf("%s - error body = %v", testPrefix, errBody)
	}
	metaOut := m["meta"].(map[string]interface{})
	if metaOut["actionId"] != "HEALTHCHECK_V1" || metaOut["v"] != float64(1) {
		t.Errorf("%s - meta = %v", testPrefix, metaOut)
	}

	m = decodeMap(t, Err(errors.New("boom"), "GET_HANDLER_ERROR", nil))
	errBody = m["error"].(map[string]interface{})
	if errBody["message"] != "boom" || errBody["code"] != "GET_HANDLER_ERROR" {
		t.Errorf("%s - error body = %v", testPrefix, errBody)
	}
	if _, has := m["meta"]; has {
		t.Errorf("%s - nil meta should be omitted", testPrefix)
	}
}

func TestFromError(t *testing.T) {
	e := FromError(actions.NotFound("Unknown action", map[string]string{"actionId": "X"}), 500, nil)
	if e.StatusCode() != 404 || e.Error.Message != "Unknown action" {
		t.Errorf("%s - FromError(NotFound) = %+v", testPrefix, e.Error)
	}
	if e.Error.Details == nil {
		t.Errorf("%s - details dropped", testPrefix)
	}

	cause := errors.New("secret-token-value leaked?")
	e = FromError(actions.Upstream("Geocoding failed: REQUEST_DENIED", cause), 500, nil)
	if strings.Contains(e.Error.Message, "secret-token-value") {
		t.Errorf("%s - wrapped cause leaked into body: %q", testPrefix, e.Error.Message)
	}
	if e.StatusCode() != 502 {
		t.Errorf("%s - upstream status = %d", testPrefix, e.StatusCode())
	}

	e = FromError(errors.New("plain"), "POST_HANDLER_ERROR", nil)
	if e.StatusCode() != 0 || e.Error.Code != "POST_HANDLER_ERROR" {
		t.Errorf("%s - fallback code = %v", testPrefix, e.Error.Code)
	}
}

func TestEnvelope_RoundTrip(t *testing.T) {
	in := Err("Invalid JSON body", 400, &Meta{RequestID: "r1"})
	b, _ := json.Marshal(in)
	var out Envelope
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("%s - unmarshal: %v", testPrefix, err)
	}
	if out.Ok || out.StatusCode() != 400 || out.Meta.RequestID != "r1" {
		t.Errorf("%s - round trip = %+v", testPrefix, out)
	}
}

func TestEnvelope_OkIffDataPresent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("ok agrees with which field is present", prop.ForAll(
		func(success bool, msg string, n int) bool {
			var e Envelope
			if success {
				e = OK(n, &Meta{RequestID: msg})
			} else {
				e = Err(msg, n, nil)
			}
			b, err := json.Marshal(e)
			if err != nil {
				return false
			}
			var m map[string]json.RawMessage
			if err := json.Unmarshal(b, &m); err != nil {
				return false
			}
			_, hasData := m["data"]
			_, hasErr := m["error"]
			return string(m["ok"]) == map[bool]string{true: "true", false: "false"}[success] &&
				hasData == success && hasErr == !success
		},
		gen.Bool(),
		gen.AnyString(),
		gen.Int(),
	))

	properties.TestingRun(t)
}
