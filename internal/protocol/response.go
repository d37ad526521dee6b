package protocol

import (
	"encoding/json"
	"fmt"
)

// ResponseType discriminates the response envelope.
type ResponseType string

const (
	ResponseMessage   ResponseType = "message"
	ResponseAuthToken ResponseType = "auth_token"
	ResponseError     ResponseType = "error"
)

// MessageView is the denormalized, read-optimized projection of a persisted
// message joined with its author's display name. It is constructed on demand
// and never persisted in this form.
type MessageView struct {
	ID       int64          `json:"id"`
	UserID   int64          `json:"user_id"`
	Username string         `json:"username"`
	Content  MessageContent `json:"content"`
}

// AuthGrant is the success body of an auth exchange.
type AuthGrant struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Response is the tagged union carried by one outbound frame. Exactly one
// variant body is set, matching Type.
type Response struct {
	Type    ResponseType `json:"type"`
	Message *MessageView `json:"message,omitempty"`
	Auth    *AuthGrant   `json:"auth,omitempty"`
	Error   *ErrorInfo   `json:"error,omitempty"`
}

// NewMessageResponse wraps a message view into an envelope.
func NewMessageResponse(view MessageView) Response {
	return Response{Type: ResponseMessage, Message: &view}
}

// NewAuthTokenResponse wraps an auth grant into an envelope.
func NewAuthTokenResponse(grant AuthGrant) Response {
	return Response{Type: ResponseAuthToken, Auth: &grant}
}

// NewErrorResponse wraps a typed error into an envelope.
func NewErrorResponse(info ErrorInfo) Response {
	return Response{Type: ResponseError, Error: &info}
}

func (r Response) validate() error {
	variants := 0
	if r.Message != nil {
		variants++
	}
	if r.Auth != nil {
		variants++
	}
	if r.Error != nil {
		variants++
	}
	if variants != 1 {
		return fmt.Errorf("%w: response carries %d variant bodies", ErrDecode, variants)
	}

	switch r.Type {
	case ResponseMessage:
		if r.Message == nil {
			return fmt.Errorf("%w: message response without message body", ErrDecode)
		}
		if err := r.Message.Content.validate(); err != nil {
			return err
		}
	case ResponseAuthToken:
		if r.Auth == nil {
			return fmt.Errorf("%w: auth_token response without auth body", ErrDecode)
		}
	case ResponseError:
		if r.Error == nil {
			return fmt.Errorf("%w: error response without error body", ErrDecode)
		}
	default:
		return fmt.Errorf("%w: unknown response type %q", ErrDecode, r.Type)
	}
	return nil
}

// EncodeResponse serializes one response envelope into a frame body.
func EncodeResponse(r Response) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// DecodeResponse parses one frame body into a response envelope.
func DecodeResponse(b []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(b, &r); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := r.validate(); err != nil {
		return Response{}, err
	}
	return r, nil
}
