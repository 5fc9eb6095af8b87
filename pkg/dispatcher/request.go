package dispatcher

import (
	"net/http"
	"net/url"
)

// GetRequest is the transport-independent view of a GET call.
type GetRequest struct {
	Query  url.Values
	Header http.Header
}

// PostRequest is the transport-independent view of a POST call. Header may be nil.
type PostRequest struct {
	Body   []byte
	Header http.Header
}

// Request parameter names.
const (
	ParamAction       = "action"
	ParamInitiator    = "initiator"
	ParamReqInitiator = "req-initiator"
	ParamVersion      = "v"
	ParamVersionLong  = "version"
)

// DefaultInitiator labels callers that do not identify themselves.
const DefaultInitiator = "Unknown"

// Error codes for failures no handler classified.
const (
	CodeGetHandlerError  = "GET_HANDLER_ERROR"
	CodePostHandlerError = "POST_HANDLER_ERROR"
)
