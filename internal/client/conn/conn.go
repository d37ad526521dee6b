// Package conn wraps the client side of the websocket connection: dialing,
// sending request envelopes and receiving response envelopes, one frame per
// envelope.
package conn

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/akruglov/chatline/internal/common"
	"github.com/akruglov/chatline/internal/protocol"
)

// Conn is a framed connection to the relay server. One goroutine may call
// Recv concurrently with one goroutine calling Send.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
}

// Dial connects to the server's websocket endpoint.
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Conn{ws: ws}, nil
}

// Send encodes one request and writes it as a single text frame.
func (c *Conn) Send(req protocol.Request) error {
	frame, err := protocol.EncodeRequest(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return common.ErrStreamClosed
	}
	return nil
}

// Recv blocks until the next response frame arrives. A closed or errored
// stream yields common.ErrStreamClosed; a structurally invalid frame yields
// a protocol.ErrDecode-wrapped error and the connection stays usable.
func (c *Conn) Recv() (protocol.Response, error) {
	msgType, data, err := c.ws.ReadMessage()
	if err != nil {
		return protocol.Response{}, common.ErrStreamClosed
	}
	if msgType != websocket.TextMessage {
		return protocol.Response{}, protocol.ErrDecode
	}
	return protocol.DecodeResponse(data)
}

// Close tears the connection down.
func (c *Conn) Close() error {
	return c.ws.Close()
}
