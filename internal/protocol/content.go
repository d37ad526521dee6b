// Package protocol defines the wire envelopes exchanged between client and
// server and the codec for them. One WebSocket text frame carries exactly one
// encoded request or response; message payloads travel as an opaque
// JSON-encoded MessageContent that the relay layer never inspects.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ContentKind discriminates the MessageContent union.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentFile  ContentKind = "file"
	ContentImage ContentKind = "image"
)

// MessageContent is the payload of a chat message: plain text, a named file,
// or an image. Exactly one variant is populated, selected by Kind.
type MessageContent struct {
	Kind ContentKind `json:"kind"`
	Text string      `json:"text,omitempty"`
	Name string      `json:"name,omitempty"`
	Data []byte      `json:"data,omitempty"`
}

// Text builds a text content.
func Text(s string) MessageContent {
	return MessageContent{Kind: ContentText, Text: s}
}

// File builds a file content carrying the original filename.
func File(name string, data []byte) MessageContent {
	return MessageContent{Kind: ContentFile, Name: name, Data: data}
}

// Image builds an image content.
func Image(data []byte) MessageContent {
	return MessageContent{Kind: ContentImage, Data: data}
}

func (c MessageContent) validate() error {
	switch c.Kind {
	case ContentText, ContentImage:
		return nil
	case ContentFile:
		if c.Name == "" {
			return fmt.Errorf("%w: file content without name", ErrDecode)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown content kind %q", ErrDecode, c.Kind)
	}
}

// EncodeContent serializes content to the opaque byte form that is persisted
// and broadcast.
func EncodeContent(c MessageContent) ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

// DecodeContent restores content from its opaque byte form.
func DecodeContent(b []byte) (MessageContent, error) {
	var c MessageContent
	if err := json.Unmarshal(b, &c); err != nil {
		return MessageContent{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := c.validate(); err != nil {
		return MessageContent{}, err
	}
	return c, nil
}
