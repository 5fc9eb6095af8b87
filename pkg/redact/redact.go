// Package redact masks credentials in request data before it is logged.
package redact

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// SensitiveHints are case-insensitive key substrings whose values are masked.
var SensitiveHints = []string{"token", "authorization", "apikey", "password", "secret", "key"}

const (
	maskedShort  = "****"
	previewRunes = 4
)

// IsSensitive reports whether key names a credential.
func IsSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, hint := range SensitiveHints {
		if strings.Contains(k, hint) {
			return true
		}
	}
	return false
}

// Mask hides s, keeping at most its first four characters.
func Mask(s string) string {
	if utf8.RuneCountInString(s) <= previewRunes {
		return maskedShort
	}
	return string([]rune(s)[:previewRunes]) + "..."
}

// MaskValue masks value when key is sensitive. Nil values pass through.
func MaskValue(key string, value interface{}) interface{} {
	if value == nil || !IsSensitive(key) {
		return value
	}
	switch v := value.(type) {
	case string:
		return Mask(v)
	default:
		return Mask(fmt.Sprint(v))
	}
}

// MaskMap returns a copy of m with sensitive values masked, descending into nested objects and
// arrays.
func MaskMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if IsSensitive(k) {
			out[k] = MaskValue(k, v)
			continue
		}
		out[k] = maskAny(v)
	}
	return out
}

func maskAny(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return MaskMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = maskAny(item)
		}
		return out
	default:
		return v
	}
}

// BodyInfo summarizes a request body. Only JSON objects are included, masked; anything else is
// reported by type and length.
type BodyInfo struct {
	Type   string                 `json:"type,omitempty"`
	Length int                    `json:"length"`
	JSON   map[string]interface{} `json:"json,omitempty"`
}

// Snapshot is a loggable, masked view of one request.
type Snapshot struct {
	Method      string            `json:"method"`
	Params      map[string]string `json:"params,omitempty"`
	ParamCounts map[string]int    `json:"paramCounts,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        *BodyInfo         `json:"body,omitempty"`
}

// loggedHeaders are the request headers included in a snapshot.
var loggedHeaders = []string{"Authorization", "Content-Type", "User-Agent", "X-Forwarded-For", "X-Request-Id"}

// NewSnapshot builds a masked snapshot. body may be nil for GET requests.
func NewSnapshot(method string, query url.Values, header http.Header, body []byte) Snapshot {
	s := Snapshot{Method: method}
	if len(query) > 0 {
		s.Params = make(map[string]string, len(query))
		s.ParamCounts = make(map[string]int, len(query))
		for k, vals := range query {
			s.ParamCounts[k] = len(vals)
			if len(vals) > 0 {
				s.Params[k] = MaskValue(k, vals[0]).(string)
			}
		}
	}
	for _, h := range loggedHeaders {
		v := header.Get(h)
		if v == "" {
			continue
		}
		if s.Headers == nil {
			s.Headers = make(map[string]string)
		}
		s.Headers[h] = MaskValue(h, v).(string)
	}
	if body != nil {
		s.Body = describeBody(header.Get("Content-Type"), body)
	}
	return s
}

func describeBody(contentType string, body []byte) *BodyInfo {
	info := &BodyInfo{Type: contentType, Length: len(body)}
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err == nil && obj != nil {
		info.JSON = MaskMap(obj)
	}
	return info
}

// String renders the snapshot as one JSON line.
func (s Snapshot) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("{\"method\":%q}", s.Method)
	}
	return string(b)
}
