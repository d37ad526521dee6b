package relay

import (
	"context"

	"github.com/akruglov/chatline/internal/logging"
	"github.com/akruglov/chatline/internal/protocol"
	"github.com/akruglov/chatline/internal/server/auth"
	"github.com/akruglov/chatline/internal/server/registry"
)

// Broadcaster fans one produced message view out to every other registry
// entry whose session token currently verifies. Entries with an empty or
// expired token are silently skipped: a client whose session expired
// mid-conversation stops receiving messages, with no notification, until it
// re-authenticates. Delivery to each target is queued on that target's own
// writer, so one slow or dead peer never delays the others.
type Broadcaster struct {
	reg    *registry.Registry
	tokens *auth.Service
	log    logging.Logger
}

func NewBroadcaster(reg *registry.Registry, tokens *auth.Service, log logging.Logger) *Broadcaster {
	return &Broadcaster{reg: reg, tokens: tokens, log: log}
}

// Broadcast delivers view to every entry except origin. Failed sends are
// logged and not retried.
func (b *Broadcaster) Broadcast(ctx context.Context, origin string, view protocol.MessageView) {
	frame, err := protocol.EncodeResponse(protocol.NewMessageResponse(view))
	if err != nil {
		b.log.Error(ctx, "encode broadcast frame failed", "err", err)
		return
	}

	b.reg.ForEach(func(addr string, p registry.Peer, token string) {
		if addr == origin || token == "" {
			return
		}
		if _, err := b.tokens.Verify(token); err != nil {
			return
		}
		if !p.Send(frame) {
			b.log.Warn(ctx, "broadcast frame dropped", "addr", addr)
		}
	})
}
