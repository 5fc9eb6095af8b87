package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/action-gateway/pkg/commsutil"
	"github.com/morezero/action-gateway/pkg/dispatcher"
)

const commsLogPrefix = "server:comms"

// subscribeDispatch joins the ServiceName queue group on DispatchSubject. Each message body is
// a POST body and the reply is the envelope JSON.
func (s *Server) subscribeDispatch() error {
	subject := dispatchSubject(s.cfg.DispatchSubject)
	sub, err := s.nc.QueueSubscribe(subject, s.cfg.ServiceName, s.handleDispatchMsg)
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", commsLogPrefix, subject, err)
	}
	s.sub = sub
	slog.Info(fmt.Sprintf("%s - Subscribed to %s (queue %s)", commsLogPrefix, subject, s.cfg.ServiceName))
	return nil
}

func dispatchSubject(configured string) string {
	if configured == "" {
		return commsutil.SubjectDispatch
	}
	return configured
}

func (s *Server) handleDispatchMsg(msg *comms.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
	defer cancel()

	env := s.disp.HandlePost(ctx, dispatcher.PostRequest{Body: msg.Data, Header: http.Header(msg.Header)})
	if msg.Reply == "" {
		slog.Debug(fmt.Sprintf("%s - dispatch message on %s without reply subject", commsLogPrefix, msg.Subject))
		return
	}

	data, err := commsutil.EncodePayload(env)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - reply encode: %v", commsLogPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Error(fmt.Sprintf("%s - reply to %s: %v", commsLogPrefix, msg.Reply, err))
	}
}
