// Package app wires the interactive chat client: it dials the relay server,
// runs the auth exchange, then splits into a REPL that sends requests and a
// receive loop that prints incoming messages, saves attachments and feeds
// the local history cache.
package app

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/akruglov/chatline/internal/client/config"
	"github.com/akruglov/chatline/internal/client/conn"
	"github.com/akruglov/chatline/internal/client/history"
	"github.com/akruglov/chatline/internal/common"
	"github.com/akruglov/chatline/internal/protocol"

	_ "modernc.org/sqlite"
)

// cacheLimit bounds the local history cache; older rows are pruned at startup.
const cacheLimit = 1000

type App struct {
	config *config.Config
	conn   *conn.Conn
	db     *sql.DB
	repo   history.Repository
	saver  *Saver
	grant  protocol.AuthGrant
	reader *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	db, err := history.InitDatabase(ctx, filepath.Join(c.DataDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("error initializing history cache: %w", err)
	}

	if err := history.Prune(ctx, db, cacheLimit); err != nil {
		printlnFn("Warning: failed to prune history cache:", err)
	}

	cn, err := conn.Dial(ctx, c.ServerURL)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		config: c,
		conn:   cn,
		db:     db,
		repo:   history.NewSQLiteRepository(db),
		saver:  NewSaver(c.DataDir),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.conn.Close()
	defer a.db.Close()

	if err := a.authenticate(ctx); err != nil {
		return err
	}

	go a.receiveLoop(ctx)

	runREPL(ctx, a, bufio.NewScanner(os.Stdin))
	return nil
}

// authenticate runs the login/register exchange until the server grants a
// token. The connection carries no other traffic yet, so the response to an
// auth request is read synchronously.
func (a *App) authenticate(ctx context.Context) error {
	for {
		mode, err := GetSimpleText(a.reader, "login or register?", os.Stdout)
		if err != nil {
			return err
		}

		var kind protocol.AuthKind
		switch mode {
		case "login":
			kind = protocol.AuthLogin
		case "register":
			kind = protocol.AuthRegister
		default:
			printlnFn("Please type 'login' or 'register'.")
			continue
		}

		username, err := GetSimpleText(a.reader, "Enter user name", os.Stdout)
		if err != nil {
			return err
		}

		pw, err := GetPassword(os.Stdout)
		if err != nil {
			return err
		}

		if err := a.conn.Send(protocol.NewAuthRequest(kind, username, string(pw))); err != nil {
			return err
		}

		resp, err := a.conn.Recv()
		if err != nil {
			return err
		}

		switch resp.Type {
		case protocol.ResponseAuthToken:
			a.grant = *resp.Auth
			printlnFn(fmt.Sprintf("Welcome, %s!", a.grant.Username))
			return nil
		case protocol.ResponseError:
			printlnFn(fmt.Sprintf("Auth failed: %s/%s", resp.Error.Source, resp.Error.Code))
		default:
			printlnFn("Unexpected response during auth, try again.")
		}
	}
}

// receiveLoop consumes every frame after auth: chat messages, history
// replays and error notices alike. It exits when the stream closes.
func (a *App) receiveLoop(ctx context.Context) {
	for {
		resp, err := a.conn.Recv()
		if errors.Is(err, common.ErrStreamClosed) {
			printlnFn("Connection closed by server.")
			return
		}
		if err != nil {
			printlnFn("Dropping malformed frame from server.")
			continue
		}
		a.handleResponse(ctx, resp)
	}
}

func (a *App) handleResponse(ctx context.Context, resp protocol.Response) {
	switch resp.Type {
	case protocol.ResponseMessage:
		a.showMessage(ctx, *resp.Message)
	case protocol.ResponseError:
		printlnFn(fmt.Sprintf("Server error: %s/%s", resp.Error.Source, resp.Error.Code))
	default:
		printlnFn("Unexpected frame from server.")
	}
}

// showMessage renders one incoming message, saves any attachment to disk
// and records the result in the local cache. Cache failures only warn; the
// chat stays usable without it.
func (a *App) showMessage(ctx context.Context, view protocol.MessageView) {
	var body string

	switch view.Content.Kind {
	case protocol.ContentText:
		body = view.Content.Text
		printlnFn(fmt.Sprintf("%s: %s", view.Username, body))

	case protocol.ContentFile:
		path, err := a.saver.SaveFile(view.Content.Name, view.Content.Data)
		if err != nil {
			printlnFn(fmt.Sprintf("%s sent a file, but saving failed: %s", view.Username, err))
			return
		}
		body = path
		printlnFn(fmt.Sprintf("%s sent a file, saved to %s", view.Username, path))

	case protocol.ContentImage:
		path, err := a.saver.SaveImage(view.Content.Data)
		if err != nil {
			printlnFn(fmt.Sprintf("%s sent an image, but saving failed: %s", view.Username, err))
			return
		}
		body = path
		printlnFn(fmt.Sprintf("%s sent an image, saved to %s", view.Username, path))
	}

	err := a.repo.Save(ctx, &history.Entry{
		ID:         view.ID,
		UserID:     view.UserID,
		Username:   view.Username,
		Kind:       string(view.Content.Kind),
		Body:       body,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		printlnFn("Warning: failed to cache message:", err)
	}
}

// Say sends a plain text message.
func (a *App) Say(ctx context.Context, text string) error {
	return a.send(protocol.Text(text))
}

// SendFile reads a local file and sends it as a file attachment.
func (a *App) SendFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		printlnFn("Cannot read file:", err)
		return err
	}
	return a.send(protocol.File(filepath.Base(path), data))
}

// SendImage reads a local image and sends it as an image attachment.
func (a *App) SendImage(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		printlnFn("Cannot read image:", err)
		return err
	}
	return a.send(protocol.Image(data))
}

func (a *App) send(content protocol.MessageContent) error {
	err := a.conn.Send(protocol.NewMessageRequest(a.grant.Token, content))
	if err != nil {
		printlnFn("Send failed:", err)
	}
	return err
}

// Read asks the server for a window of message history. The replies arrive
// as ordinary message frames on the receive loop.
func (a *App) Read(ctx context.Context, amount, offset int64) error {
	err := a.conn.Send(protocol.NewReadRequest(a.grant.Token, amount, offset))
	if err != nil {
		printlnFn("Send failed:", err)
	}
	return err
}

// Local lists the most recent messages from the on-disk cache, oldest first.
func (a *App) Local(ctx context.Context, limit int) error {
	entries, err := a.repo.Recent(ctx, limit)
	if err != nil {
		printlnFn("Cannot read local history:", err)
		return err
	}
	if len(entries) == 0 {
		printlnFn("No cached messages.")
		return nil
	}
	for _, e := range entries {
		switch e.Kind {
		case string(protocol.ContentText):
			printlnFn(fmt.Sprintf("[%d] %s: %s", e.ID, e.Username, e.Body))
		default:
			printlnFn(fmt.Sprintf("[%d] %s sent %s, saved to %s", e.ID, e.Username, e.Kind, e.Body))
		}
	}
	return nil
}
