package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akruglov/chatline/internal/logging"
	"github.com/akruglov/chatline/internal/protocol"
	"github.com/akruglov/chatline/internal/server/auth"
	"github.com/akruglov/chatline/internal/server/registry"
	"github.com/akruglov/chatline/internal/server/store"
)

type testRig struct {
	srv    *Server
	reg    *registry.Registry
	tokens *auth.Service
	store  *store.MemoryStore
	ws     *httptest.Server
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	reg := registry.New()
	tokens := auth.NewService(time.Hour)
	st := store.NewMemoryStore()
	srv := NewServer(":0", Options{ReadLimit: 1 << 20, SendBuffer: 16}, reg, tokens, st, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	ws := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.handleUpgrade(ctx, w, r)
	}))

	t.Cleanup(func() {
		ws.Close()
		cancel()
	})

	return &testRig{srv: srv, reg: reg, tokens: tokens, store: st, ws: ws}
}

func (r *testRig) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(r.ws.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, req protocol.Request) {
	t.Helper()
	frame, err := protocol.EncodeRequest(req)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func recv(t *testing.T, conn *websocket.Conn) protocol.Response {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	resp, err := protocol.DecodeResponse(data)
	require.NoError(t, err)
	return resp
}

// assertSilent verifies no frame arrives within the grace window.
func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "expected no frame")
}

func authenticate(t *testing.T, conn *websocket.Conn, kind protocol.AuthKind, username, password string) protocol.AuthGrant {
	t.Helper()
	send(t, conn, protocol.NewAuthRequest(kind, username, password))
	resp := recv(t, conn)
	require.Equal(t, protocol.ResponseAuthToken, resp.Type, "auth failed: %+v", resp)
	return *resp.Auth
}

func TestRegisterThenLogin_SameUserID(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	conn := rig.dial(t)
	reg := authenticate(t, conn, protocol.AuthRegister, "alice", "pw")
	login := authenticate(t, conn, protocol.AuthLogin, "alice", "pw")

	assert.Equal(t, reg.UserID, login.UserID)
	assert.NotEmpty(t, reg.Token)
	assert.NotEmpty(t, login.Token)

	id1, err := rig.tokens.Verify(reg.Token)
	require.NoError(t, err)
	id2, err := rig.tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	conn := rig.dial(t)
	authenticate(t, conn, protocol.AuthRegister, "alice", "pw")

	send(t, conn, protocol.NewAuthRequest(protocol.AuthLogin, "alice", "wrong"))
	resp := recv(t, conn)
	require.Equal(t, protocol.ResponseError, resp.Type)
	assert.Equal(t, protocol.CodeInvalidCredentials, resp.Error.Code)
	assert.Equal(t, protocol.SourceServer, resp.Error.Source)
}

func TestRegister_UsernameUsed(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	conn := rig.dial(t)
	authenticate(t, conn, protocol.AuthRegister, "alice", "pw")

	send(t, conn, protocol.NewAuthRequest(protocol.AuthRegister, "alice", "pw2"))
	resp := recv(t, conn)
	require.Equal(t, protocol.ResponseError, resp.Type)
	assert.Equal(t, protocol.CodeUsernameUsed, resp.Error.Code)
}

func TestBroadcast_Scenario(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	alice := rig.dial(t)
	bob := rig.dial(t)
	eve := rig.dial(t) // connected but never authenticates

	grantAlice := authenticate(t, alice, protocol.AuthRegister, "alice", "pw")
	authenticate(t, bob, protocol.AuthRegister, "bob", "pw")

	send(t, alice, protocol.NewMessageRequest(grantAlice.Token, protocol.Text("hi")))

	got := recv(t, bob)
	require.Equal(t, protocol.ResponseMessage, got.Type)
	assert.Equal(t, "alice", got.Message.Username)
	assert.Equal(t, protocol.Text("hi"), got.Message.Content)

	assertSilent(t, alice)
	assertSilent(t, eve)
}

func TestMessage_InvalidToken_NotPersisted(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	conn := rig.dial(t)
	grant := authenticate(t, conn, protocol.AuthRegister, "alice", "pw")

	send(t, conn, protocol.NewMessageRequest("forged-token", protocol.Text("sneaky")))
	resp := recv(t, conn)
	require.Equal(t, protocol.ResponseError, resp.Type)
	assert.Equal(t, protocol.CodeInvalidToken, resp.Error.Code)

	// Nothing was persisted: a read returns no message frames, so send a
	// valid message afterwards and confirm it is the only one in history.
	send(t, conn, protocol.NewMessageRequest(grant.Token, protocol.Text("real")))
	time.Sleep(100 * time.Millisecond)

	send(t, conn, protocol.NewReadRequest(grant.Token, 10, 0))
	got := recv(t, conn)
	require.Equal(t, protocol.ResponseMessage, got.Type)
	assert.Equal(t, protocol.Text("real"), got.Message.Content)
	assertSilent(t, conn)
}

func TestRead_WindowAndOrder(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	conn := rig.dial(t)
	grant := authenticate(t, conn, protocol.AuthRegister, "alice", "pw")

	for _, text := range []string{"one", "two", "three", "four"} {
		send(t, conn, protocol.NewMessageRequest(grant.Token, protocol.Text(text)))
	}
	// Messages on one connection are handled in arrival order; the read
	// below is processed only after every save above.
	send(t, conn, protocol.NewReadRequest(grant.Token, 3, 0))

	var views []protocol.MessageView
	for i := 0; i < 3; i++ {
		resp := recv(t, conn)
		require.Equal(t, protocol.ResponseMessage, resp.Type)
		views = append(views, *resp.Message)
	}

	assert.Equal(t, protocol.Text("two"), views[0].Content)
	assert.Equal(t, protocol.Text("three"), views[1].Content)
	assert.Equal(t, protocol.Text("four"), views[2].Content)
	assert.Less(t, views[0].ID, views[1].ID)
	assert.Less(t, views[1].ID, views[2].ID)
}

func TestRead_InvalidTokenFailsClosed(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	conn := rig.dial(t)
	authenticate(t, conn, protocol.AuthRegister, "alice", "pw")

	send(t, conn, protocol.NewReadRequest("nope", 10, 0))
	resp := recv(t, conn)
	require.Equal(t, protocol.ResponseError, resp.Type)
	assert.Equal(t, protocol.CodeInvalidToken, resp.Error.Code)
}

func TestRead_MissingAuthorYieldsErrorFrameAndContinues(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	alice := rig.dial(t)
	bob := rig.dial(t)

	grantAlice := authenticate(t, alice, protocol.AuthRegister, "alice", "pw")
	grantBob := authenticate(t, bob, protocol.AuthRegister, "bob", "pw")

	send(t, alice, protocol.NewMessageRequest(grantAlice.Token, protocol.Text("from alice")))
	recv(t, bob) // wait until the first message is persisted and delivered
	send(t, bob, protocol.NewMessageRequest(grantBob.Token, protocol.Text("from bob")))
	recv(t, alice)

	rig.store.DeleteUser(grantAlice.UserID)

	send(t, bob, protocol.NewReadRequest(grantBob.Token, 10, 0))

	first := recv(t, bob)
	require.Equal(t, protocol.ResponseError, first.Type)
	assert.Equal(t, protocol.CodeUserNotFound, first.Error.Code)

	second := recv(t, bob)
	require.Equal(t, protocol.ResponseMessage, second.Type)
	assert.Equal(t, "bob", second.Message.Username)
}

func TestMalformedFrame_ConnectionSurvives(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	conn := rig.dial(t)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)))

	// The offending frame is dropped and the connection keeps working.
	grant := authenticate(t, conn, protocol.AuthRegister, "alice", "pw")
	assert.NotEmpty(t, grant.Token)
}

func TestDisconnect_RemovedFromRegistry(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	alice := rig.dial(t)
	bob := rig.dial(t)

	grantAlice := authenticate(t, alice, protocol.AuthRegister, "alice", "pw")
	authenticate(t, bob, protocol.AuthRegister, "bob", "pw")

	require.NoError(t, bob.Close())

	require.Eventually(t, func() bool {
		return rig.reg.Len() == 1
	}, 2*time.Second, 10*time.Millisecond, "registry should drop the closed connection")

	// A broadcast after the disconnect is delivered nowhere and raises no
	// error on the remaining connection.
	send(t, alice, protocol.NewMessageRequest(grantAlice.Token, protocol.Text("anyone?")))
	assertSilent(t, alice)
}

func TestFileAndImageContent_Relayed(t *testing.T) {
	t.Parallel()
	rig := newTestRig(t)

	alice := rig.dial(t)
	bob := rig.dial(t)

	grant := authenticate(t, alice, protocol.AuthRegister, "alice", "pw")
	authenticate(t, bob, protocol.AuthRegister, "bob", "pw")

	fileContent := protocol.File("notes.txt", []byte("file-bytes"))
	send(t, alice, protocol.NewMessageRequest(grant.Token, fileContent))
	got := recv(t, bob)
	require.Equal(t, protocol.ResponseMessage, got.Type)
	assert.Equal(t, fileContent, got.Message.Content)

	imageContent := protocol.Image([]byte{0x89, 'P', 'N', 'G'})
	send(t, alice, protocol.NewMessageRequest(grant.Token, imageContent))
	got = recv(t, bob)
	require.Equal(t, protocol.ResponseMessage, got.Type)
	assert.Equal(t, imageContent, got.Message.Content)
}
