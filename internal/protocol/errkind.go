package protocol

import "errors"

// ErrDecode marks a frame that parsed as bytes but failed structural
// decoding. It is recoverable: the handler drops the frame and keeps reading.
var ErrDecode = errors.New("malformed frame")

// ErrorSource tells which layer produced a protocol-visible error.
type ErrorSource string

const (
	SourceServer ErrorSource = "server"
	SourceDB     ErrorSource = "db"
)

// Server error codes.
const (
	CodeInvalidToken       = "invalid_token"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUsernameUsed       = "username_used"
	CodeSerializeObject    = "serialize_object"
	CodeDeserializeObject  = "deserialize_object"
)

// DB error codes.
const (
	CodeDBConnection         = "connection"
	CodeUserInsertion        = "user_insertion"
	CodeMessageInsertion     = "message_insertion"
	CodeMessageHistory       = "message_history"
	CodeUserNotFound         = "user_not_found"
	CodePasswordVerification = "password_verification"
)

// ErrorInfo is the error variant body in a response envelope.
type ErrorInfo struct {
	Source ErrorSource `json:"source"`
	Code   string      `json:"code"`
}

// ServerErr builds a server-sourced error body.
func ServerErr(code string) ErrorInfo {
	return ErrorInfo{Source: SourceServer, Code: code}
}

// DBErr builds a storage-sourced error body.
func DBErr(code string) ErrorInfo {
	return ErrorInfo{Source: SourceDB, Code: code}
}
