// Package events defines the action-invocation audit event and its publishers.
package events

// ActionInvokedEvent is emitted after every dispatched request, successful or not.
type ActionInvokedEvent struct {
	RequestID    string `json:"requestId"`
	ActionID     string `json:"actionId,omitempty"`
	PublicAction string `json:"publicAction,omitempty"`
	Initiator    string `json:"initiator"`
	Method       string `json:"method"`
	Version      int    `json:"v"`
	Ok           bool   `json:"ok"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorID      string `json:"errorId,omitempty"`
	DurationMs   int64  `json:"durationMs"`
	TokenSource  string `json:"tokenSource,omitempty"`
	AuthSource   string `json:"authSource,omitempty"`
	Timestamp    string `json:"timestamp"`
}
