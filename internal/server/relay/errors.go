package relay

import (
	"errors"
	"io"
	"net"

	"github.com/gorilla/websocket"

	"github.com/akruglov/chatline/internal/protocol"
	"github.com/akruglov/chatline/internal/server/store"
)

// isClosedConnError classifies the read/write errors that mean the peer is
// gone: the normal deregistration path, never logged as a failure.
func isClosedConnError(err error) bool {
	if err == nil {
		return false
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && !netErr.Timeout()
}

// dbErrorInfo maps a store failure onto the protocol's db error codes.
func dbErrorInfo(err error) protocol.ErrorInfo {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return protocol.DBErr(protocol.CodeUserNotFound)
	case errors.Is(err, store.ErrVerify):
		return protocol.DBErr(protocol.CodePasswordVerification)
	case errors.Is(err, store.ErrInsert):
		return protocol.DBErr(protocol.CodeMessageInsertion)
	case errors.Is(err, store.ErrHistory):
		return protocol.DBErr(protocol.CodeMessageHistory)
	default:
		return protocol.DBErr(protocol.CodeDBConnection)
	}
}
