// Package dispatcher runs the GET and POST pipelines: version and action parsing, token
// authentication, registry resolution, handler invocation and error containment.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/action-gateway/pkg/actions"
	"github.com/morezero/action-gateway/pkg/auth"
	"github.com/morezero/action-gateway/pkg/envelope"
	"github.com/morezero/action-gateway/pkg/events"
	"github.com/morezero/action-gateway/pkg/metrics"
)

const logPrefix = "dispatcher:dispatch"

// Options configures a Dispatcher. Zero values use defaults.
type Options struct {
	Publisher events.EventPublisher
	Now       func() time.Time
	NewID     func() string
}

// Dispatcher is safe for concurrent use. Each call owns its RequestContext.
type Dispatcher struct {
	router    *actions.Router
	auth      *auth.Authenticator
	publisher events.EventPublisher
	now       func() time.Time
	newID     func() string
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(router *actions.Router, authenticator *auth.Authenticator, opts Options) *Dispatcher {
	d := &Dispatcher{
		router:    router,
		auth:      authenticator,
		publisher: opts.Publisher,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if d.publisher == nil {
		d.publisher = &events.NoOpPublisher{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.newID == nil {
		d.newID = ShortID
	}
	return d
}

// ShortID returns the first eight characters of a random UUID.
func ShortID() string {
	return uuid.NewString()[:8]
}

// call tracks one request through the pipeline.
type call struct {
	rc          actions.RequestContext
	start       time.Time
	tokenSource auth.TokenSource
	authSource  string
	fallback    string
}

func (c *call) meta() *envelope.Meta {
	return &envelope.Meta{
		ActionID:     string(c.rc.ActionID),
		PublicAction: c.rc.PublicAction,
		RequestID:    c.rc.RequestID,
		Initiator:    c.rc.Initiator,
		V:            c.rc.APIVersion,
	}
}

func (d *Dispatcher) begin(method, fallbackCode string) *call {
	return &call{
		rc:       actions.RequestContext{RequestID: d.newID(), Initiator: DefaultInitiator, Method: method},
		start:    d.now(),
		fallback: fallbackCode,
	}
}

// invoke runs h and converts panics into errors.
func (d *Dispatcher) invoke(ctx context.Context, h actions.Handler, payload actions.Payload, c *call) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error(fmt.Sprintf("%s - handler panic request=%s action=%s: %v\n%s", logPrefix, c.rc.RequestID, c.rc.ActionID, r, debug.Stack()))
			err = fmt.Errorf("%v", r)
		}
	}()
	rc := c.rc
	return h(ctx, payload, &rc)
}

// fail converts err into an error envelope. Validation, auth, not-found and upstream errors keep
// their status; internal and unclassified errors get an error id that is logged with the detail.
func (d *Dispatcher) fail(c *call, err error) envelope.Envelope {
	meta := c.meta()
	var ae *actions.ActionError
	if errors.As(err, &ae) && ae.Kind != actions.KindInternal {
		if ae.Kind == actions.KindUpstream {
			slog.Warn(fmt.Sprintf("%s - upstream failure request=%s action=%s: %v", logPrefix, c.rc.RequestID, c.rc.ActionID, err))
		}
		return envelope.FromError(ae, c.fallback, meta)
	}

	meta.ErrorID = d.newID()
	slog.Error(fmt.Sprintf("%s - %s errorId=%s request=%s action=%s: %v", logPrefix, c.fallback, meta.ErrorID, c.rc.RequestID, c.rc.ActionID, err))
	if ae != nil {
		return envelope.Err(ae.Message, ae.Status, meta)
	}
	return envelope.Err(err.Error(), c.fallback, meta)
}

// finish records metrics, logs the outcome and publishes the audit event.
func (d *Dispatcher) finish(ctx context.Context, c *call, env envelope.Envelope) envelope.Envelope {
	elapsed := d.now().Sub(c.start)
	durationMs := elapsed.Milliseconds()

	action := string(c.rc.ActionID)
	if action == "" {
		action = metrics.UnknownAction
	}
	outcome := "ok"
	code := ""
	if !env.Ok {
		outcome = "error"
		if env.Error != nil && env.Error.Code != nil {
			code = codeString(env.Error.Code)
		}
	}
	metrics.Requests.WithLabelValues(c.rc.Method, action, outcome).Inc()
	metrics.RequestDuration.WithLabelValues(c.rc.Method).Observe(float64(elapsed.Microseconds()) / 1000)

	slog.Info(fmt.Sprintf("%s - %s done request=%s action=%s ok=%t code=%s durationMs=%d",
		logPrefix, c.rc.Method, c.rc.RequestID, action, env.Ok, code, durationMs))

	event := &events.ActionInvokedEvent{
		RequestID:    c.rc.RequestID,
		ActionID:     string(c.rc.ActionID),
		PublicAction: c.rc.PublicAction,
		Initiator:    c.rc.Initiator,
		Method:       c.rc.Method,
		Version:      c.rc.APIVersion,
		Ok:           env.Ok,
		ErrorCode:    code,
		DurationMs:   durationMs,
		TokenSource:  string(c.tokenSource),
		AuthSource:   c.authSource,
		Timestamp:    d.now().UTC().Format(time.RFC3339),
	}
	if env.Meta != nil {
		event.ErrorID = env.Meta.ErrorID
	}
	if err := d.publisher.PublishInvoked(context.WithoutCancel(ctx), event); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		slog.Warn(fmt.Sprintf("%s - failed to publish invoked event request=%s: %v", logPrefix, c.rc.RequestID, err))
	} else {
		metrics.EventsPublished.WithLabelValues("ok").Inc()
	}
	return env
}

// guard is the last-resort recovery for failures outside the handler.
func (d *Dispatcher) guard(ctx context.Context, c *call, out *envelope.Envelope) {
	if r := recover(); r != nil {
		slog.Error(fmt.Sprintf("%s - pipeline panic request=%s: %v\n%s", logPrefix, c.rc.RequestID, r, debug.Stack()))
		*out = d.finish(ctx, c, d.fail(c, fmt.Errorf("%v", r)))
	}
}

func (d *Dispatcher) authenticate(ctx context.Context, c *call, token string, source auth.TokenSource) bool {
	c.tokenSource = source
	res := d.auth.Validate(ctx, token)
	c.authSource = res.SourceName()
	slog.Info(fmt.Sprintf("%s - %s request=%s initiator=%s token=%s source=%s valid=%t",
		logPrefix, c.rc.Method, c.rc.RequestID, c.rc.Initiator, res.PreviewString(), source, res.Valid))
	return res.Valid
}

func codeString(code interface{}) string {
	switch v := code.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// withoutToken returns a copy of p without the token field.
func withoutToken(p actions.Payload) actions.Payload {
	out := make(actions.Payload, len(p))
	for k, v := range p {
		if k == auth.TokenField {
			continue
		}
		out[k] = v
	}
	return out
}
