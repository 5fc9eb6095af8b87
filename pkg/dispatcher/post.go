package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/morezero/action-gateway/pkg/actions"
	"github.com/morezero/action-gateway/pkg/auth"
	"github.com/morezero/action-gateway/pkg/commsutil"
	"github.com/morezero/action-gateway/pkg/envelope"
	"github.com/morezero/action-gateway/pkg/redact"
	"github.com/morezero/action-gateway/pkg/version"
)

// HandlePost runs the POST pipeline. The token is read from the body only and is checked before
// the action field.
func (d *Dispatcher) HandlePost(ctx context.Context, req PostRequest) (out envelope.Envelope) {
	c := d.begin(http.MethodPost, CodePostHandlerError)
	defer d.guard(ctx, c, &out)

	if req.Header == nil {
		req.Header = http.Header{}
	}
	slog.Debug(fmt.Sprintf("%s - POST snapshot request=%s %s", logPrefix, c.rc.RequestID, redact.NewSnapshot(http.MethodPost, nil, req.Header, req.Body)))

	obj, err := commsutil.DecodeObject(req.Body)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - invalid POST body request=%s: %v", logPrefix, c.rc.RequestID, err))
		return d.finish(ctx, c, envelope.Err("Invalid JSON body", http.StatusBadRequest, c.meta()))
	}
	body := actions.Payload(obj)
	c.rc.Initiator = initiatorOf(body.String(ParamInitiator), body.String(ParamReqInitiator))
	c.rc.APIVersion = version.ParseAPIVersion(version.FirstNonEmpty(body.String(ParamVersion), body.String(ParamVersionLong)))

	token, source := auth.ExtractBody(body)
	if !d.authenticate(ctx, c, token, source) {
		return d.finish(ctx, c, envelope.FromError(actions.Unauthorized(), http.StatusUnauthorized, c.meta()))
	}

	action := body.String(ParamAction)
	if action == "" {
		return d.finish(ctx, c, envelope.Err("Missing required parameter: 'action'", http.StatusBadRequest, c.meta()))
	}
	c.rc.PublicAction = action

	registry, _ := d.router.ForVersion(c.rc.APIVersion)
	id, handler, ok := registry.Resolve(action)
	if !ok {
		c.rc.ActionID = id
		meta := c.meta()
		c.rc.ActionID = ""
		slog.Warn(fmt.Sprintf("%s - unknown POST action request=%s action=%s", logPrefix, c.rc.RequestID, action))
		return d.finish(ctx, c, envelope.Err("Unknown action", http.StatusNotFound, meta))
	}
	c.rc.ActionID = id

	data, err := d.invoke(ctx, handler, withoutToken(body), c)
	if err != nil {
		return d.finish(ctx, c, d.fail(c, err))
	}
	return d.finish(ctx, c, envelope.OK(data, c.meta()))
}
