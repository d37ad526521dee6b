package protocol

import (
	"encoding/json"
	"fmt"
)

// RequestType discriminates the request envelope.
type RequestType string

const (
	RequestAuth    RequestType = "auth"
	RequestMessage RequestType = "message"
	RequestRead    RequestType = "read"
)

// AuthKind selects between the two auth exchanges.
type AuthKind string

const (
	AuthLogin    AuthKind = "login"
	AuthRegister AuthKind = "register"
)

// AuthRequest asks the server to log in or register a user.
type AuthRequest struct {
	Kind     AuthKind `json:"kind"`
	Username string   `json:"username"`
	Password string   `json:"password"`
}

// MessageRequest submits one chat message under a session token.
type MessageRequest struct {
	Token   string         `json:"token"`
	Content MessageContent `json:"content"`
}

// ReadRequest asks for the Amount most recent messages, offset from the
// newest by Offset.
type ReadRequest struct {
	Token  string `json:"token"`
	Amount int64  `json:"amount"`
	Offset int64  `json:"offset"`
}

// Request is the tagged union carried by one inbound frame. Exactly one
// variant body is set, matching Type.
type Request struct {
	Type    RequestType     `json:"type"`
	Auth    *AuthRequest    `json:"auth,omitempty"`
	Message *MessageRequest `json:"message,omitempty"`
	Read    *ReadRequest    `json:"read,omitempty"`
}

// NewAuthRequest wraps an auth exchange into an envelope.
func NewAuthRequest(kind AuthKind, username, password string) Request {
	return Request{Type: RequestAuth, Auth: &AuthRequest{Kind: kind, Username: username, Password: password}}
}

// NewMessageRequest wraps a message submission into an envelope.
func NewMessageRequest(token string, content MessageContent) Request {
	return Request{Type: RequestMessage, Message: &MessageRequest{Token: token, Content: content}}
}

// NewReadRequest wraps a history read into an envelope.
func NewReadRequest(token string, amount, offset int64) Request {
	return Request{Type: RequestRead, Read: &ReadRequest{Token: token, Amount: amount, Offset: offset}}
}

func (r Request) validate() error {
	variants := 0
	if r.Auth != nil {
		variants++
	}
	if r.Message != nil {
		variants++
	}
	if r.Read != nil {
		variants++
	}
	if variants != 1 {
		return fmt.Errorf("%w: request carries %d variant bodies", ErrDecode, variants)
	}

	switch r.Type {
	case RequestAuth:
		if r.Auth == nil {
			return fmt.Errorf("%w: auth request without auth body", ErrDecode)
		}
		if r.Auth.Kind != AuthLogin && r.Auth.Kind != AuthRegister {
			return fmt.Errorf("%w: unknown auth kind %q", ErrDecode, r.Auth.Kind)
		}
	case RequestMessage:
		if r.Message == nil {
			return fmt.Errorf("%w: message request without message body", ErrDecode)
		}
		if err := r.Message.Content.validate(); err != nil {
			return err
		}
	case RequestRead:
		if r.Read == nil {
			return fmt.Errorf("%w: read request without read body", ErrDecode)
		}
		if r.Read.Amount < 0 || r.Read.Offset < 0 {
			return fmt.Errorf("%w: negative read window", ErrDecode)
		}
	default:
		return fmt.Errorf("%w: unknown request type %q", ErrDecode, r.Type)
	}
	return nil
}

// EncodeRequest serializes one request envelope into a frame body.
func EncodeRequest(r Request) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// DecodeRequest parses one frame body into a request envelope.
func DecodeRequest(b []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(b, &r); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := r.validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}
