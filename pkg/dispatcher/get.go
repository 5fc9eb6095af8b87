package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/morezero/action-gateway/pkg/actions"
	"github.com/morezero/action-gateway/pkg/auth"
	"github.com/morezero/action-gateway/pkg/envelope"
	"github.com/morezero/action-gateway/pkg/redact"
	"github.com/morezero/action-gateway/pkg/version"
)

// HandleGet runs the GET pipeline. The action parameter is checked before the token, so a call
// missing both gets the missing-action error.
func (d *Dispatcher) HandleGet(ctx context.Context, req GetRequest) (out envelope.Envelope) {
	c := d.begin(http.MethodGet, CodeGetHandlerError)
	defer d.guard(ctx, c, &out)

	if req.Header == nil {
		req.Header = http.Header{}
	}
	slog.Debug(fmt.Sprintf("%s - GET snapshot request=%s %s", logPrefix, c.rc.RequestID, redact.NewSnapshot(http.MethodGet, req.Query, req.Header, nil)))

	action := strings.TrimSpace(req.Query.Get(ParamAction))
	c.rc.Initiator = initiatorOf(req.Query.Get(ParamReqInitiator), req.Query.Get(ParamInitiator))
	c.rc.APIVersion = version.ParseAPIVersion(version.FirstNonEmpty(req.Query.Get(ParamVersion), req.Query.Get(ParamVersionLong)))
	c.rc.PublicAction = action

	if action == "" {
		return d.finish(ctx, c, envelope.Err("Missing required parameter: 'action'", http.StatusBadRequest, c.meta()))
	}

	token, source := auth.ExtractGET(req.Query, req.Header)
	if !d.authenticate(ctx, c, token, source) {
		return d.finish(ctx, c, envelope.FromError(actions.Unauthorized(), http.StatusUnauthorized, c.meta()))
	}

	registry, served := d.router.ForVersion(c.rc.APIVersion)
	id, handler, ok := registry.Resolve(action)
	if !ok {
		slog.Warn(fmt.Sprintf("%s - unknown GET action request=%s action=%s v=%d served=%d", logPrefix, c.rc.RequestID, action, c.rc.APIVersion, served))
		return d.finish(ctx, c, envelope.Err("Unknown GET action: "+action, http.StatusNotFound, c.meta()))
	}
	c.rc.ActionID = id

	payload := make(actions.Payload, len(req.Query))
	for k, vals := range req.Query {
		if k == auth.TokenField || len(vals) == 0 {
			continue
		}
		payload[k] = vals[0]
	}

	data, err := d.invoke(ctx, handler, payload, c)
	if err != nil {
		return d.finish(ctx, c, d.fail(c, err))
	}
	return d.finish(ctx, c, envelope.OK(data, c.meta()))
}

func initiatorOf(candidates ...string) string {
	if s := version.FirstNonEmpty(candidates...); s != "" {
		return s
	}
	return DefaultInitiator
}
