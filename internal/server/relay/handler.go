package relay

import (
	"context"
	"errors"

	"github.com/gorilla/websocket"

	"github.com/akruglov/chatline/internal/common"
	"github.com/akruglov/chatline/internal/logging"
	"github.com/akruglov/chatline/internal/protocol"
	"github.com/akruglov/chatline/internal/server/auth"
	"github.com/akruglov/chatline/internal/server/registry"
	"github.com/akruglov/chatline/internal/server/store"
)

// handler runs the protocol state machine for one connection. The state is
// held entirely by the registry entry: an empty token means connected but
// unauthenticated, a set token means authenticated; a successful auth
// exchange may re-enter the authenticated state any number of times.
// Stream closure is terminal and removes the entry.
type handler struct {
	addr   string
	conn   *websocket.Conn
	peer   *Peer
	reg    *registry.Registry
	tokens *auth.Service
	store  store.Store
	bcast  *Broadcaster
	log    logging.Logger
}

// run reads frames until the stream closes. Requests on one connection are
// processed strictly in arrival order.
func (h *handler) run(ctx context.Context) {
	defer func() {
		h.reg.Remove(h.addr)
		h.peer.Close()
		h.log.Info(ctx, "stream closed")
	}()

	for {
		req, err := h.readRequest()
		switch {
		case err == nil:
		case errors.Is(err, common.ErrStreamClosed):
			return
		case errors.Is(err, protocol.ErrDecode):
			// Malformed frame: drop it and keep the connection alive.
			h.log.Warn(ctx, "dropping malformed frame", "err", err)
			continue
		default:
			h.log.Error(ctx, "read failed", "err", err)
			continue
		}

		switch req.Type {
		case protocol.RequestAuth:
			h.handleAuth(ctx, req.Auth)
		case protocol.RequestMessage:
			h.handleMessage(ctx, req.Message)
		case protocol.RequestRead:
			h.handleRead(ctx, req.Read)
		default:
			// DecodeRequest guarantees a known type; keep the switch exhaustive.
			h.log.Warn(ctx, "unhandled request type", "type", req.Type)
		}
	}
}

// readRequest reads exactly one complete frame and decodes it. A closed or
// errored stream while waiting for a frame is a stream-closed condition, not
// a decode error.
func (h *handler) readRequest() (protocol.Request, error) {
	msgType, data, err := h.conn.ReadMessage()
	if err != nil {
		// gorilla/websocket makes the connection unusable after any read
		// error, so unexpected errors end the stream the same way a normal
		// close does.
		return protocol.Request{}, common.ErrStreamClosed
	}
	if msgType != websocket.TextMessage {
		return protocol.Request{}, protocol.ErrDecode
	}
	return protocol.DecodeRequest(data)
}

func (h *handler) respond(ctx context.Context, resp protocol.Response) {
	frame, err := protocol.EncodeResponse(resp)
	if err != nil {
		h.log.Error(ctx, "encode response failed", "err", err)
		return
	}
	if !h.peer.Send(frame) {
		h.log.Warn(ctx, "response frame dropped")
	}
}

func (h *handler) respondError(ctx context.Context, info protocol.ErrorInfo) {
	h.respond(ctx, protocol.NewErrorResponse(info))
}

func (h *handler) handleAuth(ctx context.Context, req *protocol.AuthRequest) {
	switch req.Kind {
	case protocol.AuthLogin:
		h.handleLogin(ctx, req)
	case protocol.AuthRegister:
		h.handleRegister(ctx, req)
	}
}

func (h *handler) handleLogin(ctx context.Context, req *protocol.AuthRequest) {
	ok, err := h.store.VerifyPassword(ctx, req.Username, req.Password)
	if err != nil {
		h.respondError(ctx, dbErrorInfo(err))
		return
	}
	if !ok {
		h.respondError(ctx, protocol.ServerErr(protocol.CodeInvalidCredentials))
		return
	}

	userID, err := h.store.GetUserID(ctx, req.Username)
	if err != nil {
		h.respondError(ctx, dbErrorInfo(err))
		return
	}

	h.grantToken(ctx, userID, req.Username)
}

func (h *handler) handleRegister(ctx context.Context, req *protocol.AuthRequest) {
	user, err := h.store.CreateUser(ctx, req.Username, req.Password)
	if err != nil {
		// Collisions and insertion failures look the same to the client.
		h.log.Warn(ctx, "register failed", "username", req.Username, "err", err)
		h.respondError(ctx, protocol.ServerErr(protocol.CodeUsernameUsed))
		return
	}

	h.grantToken(ctx, user.ID, user.Username)
}

// grantToken mints a session token, answers with it and marks this
// connection authenticated in the registry.
func (h *handler) grantToken(ctx context.Context, userID int64, username string) {
	token, err := h.tokens.Issue(userID)
	if err != nil {
		h.log.Error(ctx, "token issue failed", "err", err)
		h.respondError(ctx, protocol.ServerErr(protocol.CodeSerializeObject))
		return
	}

	h.respond(ctx, protocol.NewAuthTokenResponse(protocol.AuthGrant{
		Token:    token,
		UserID:   userID,
		Username: username,
	}))

	if err := h.reg.SetToken(h.addr, token); err != nil {
		h.log.Error(ctx, "registry token update failed", "err", err)
	}
}

func (h *handler) handleMessage(ctx context.Context, req *protocol.MessageRequest) {
	userID, err := h.tokens.Verify(req.Token)
	if err != nil {
		h.respondError(ctx, protocol.ServerErr(protocol.CodeInvalidToken))
		return
	}

	encoded, err := protocol.EncodeContent(req.Content)
	if err != nil {
		h.respondError(ctx, protocol.ServerErr(protocol.CodeSerializeObject))
		return
	}

	// Persisted strictly before broadcast, so a subsequent history read is
	// guaranteed to see the message.
	msg, err := h.store.SaveMessage(ctx, userID, encoded)
	if err != nil {
		h.log.Error(ctx, "save message failed", "err", err)
		h.respondError(ctx, dbErrorInfo(err))
		return
	}

	view, errInfo := h.resolveView(ctx, msg)
	if errInfo != nil {
		h.respondError(ctx, *errInfo)
		return
	}

	h.bcast.Broadcast(ctx, h.addr, view)
}

func (h *handler) handleRead(ctx context.Context, req *protocol.ReadRequest) {
	// Validate before any storage access.
	if _, err := h.tokens.Verify(req.Token); err != nil {
		h.respondError(ctx, protocol.ServerErr(protocol.CodeInvalidToken))
		return
	}

	messages, err := h.store.ReadHistory(ctx, req.Amount, req.Offset)
	if err != nil {
		h.respondError(ctx, dbErrorInfo(err))
		return
	}

	// One frame per message, oldest first. A resolution failure for one
	// message yields one error frame and does not abort the batch.
	for i := range messages {
		view, errInfo := h.resolveView(ctx, &messages[i])
		if errInfo != nil {
			h.respondError(ctx, *errInfo)
			continue
		}
		h.respond(ctx, protocol.NewMessageResponse(view))
	}
}

// resolveView joins a persisted message with its author's display identity.
func (h *handler) resolveView(ctx context.Context, msg *store.Message) (protocol.MessageView, *protocol.ErrorInfo) {
	user, err := h.store.GetUser(ctx, msg.UserID)
	if err != nil {
		info := dbErrorInfo(err)
		return protocol.MessageView{}, &info
	}

	content, err := protocol.DecodeContent(msg.Content)
	if err != nil {
		info := protocol.ServerErr(protocol.CodeDeserializeObject)
		return protocol.MessageView{}, &info
	}

	return protocol.MessageView{
		ID:       msg.ID,
		UserID:   msg.UserID,
		Username: user.Username,
		Content:  content,
	}, nil
}
