package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrConnection marks transport failures: refusal, reset, or unexpected
// closure of the stream.
var ErrConnection = errors.New("query: connection error")

// ErrTimeout marks a bounded wait that exceeded its deadline. It wraps
// ErrConnection so errors.Is(err, ErrConnection) holds for timeouts too.
var ErrTimeout = fmt.Errorf("%w: timeout", ErrConnection)

// ErrClosed is returned once the connection has been closed and no further
// commands or events can be served.
var ErrClosed = fmt.Errorf("%w: closed", ErrConnection)

// ErrorCode names a server-reported failure class.
type ErrorCode string

// Error codes mapped from the numeric result ids the server reports. Ids not
// in the table map to CodeUndefined rather than failing to parse.
const (
	CodeOK                      ErrorCode = "ok"
	CodeUndefined               ErrorCode = "undefined"
	CodeCommandNotFound         ErrorCode = "command_not_found"
	CodeInvalidClientID         ErrorCode = "invalid_client_id"
	CodeNicknameInUse           ErrorCode = "nickname_in_use"
	CodeInvalidChannelID        ErrorCode = "invalid_channel_id"
	CodeInvalidServerID         ErrorCode = "invalid_server_id"
	CodeParameterInvalid        ErrorCode = "parameter_invalid"
	CodeDatabaseEmptyResult     ErrorCode = "database_empty_result"
	CodeInsufficientPermissions ErrorCode = "insufficient_permissions"
	CodeConnectionBanned        ErrorCode = "connection_banned"
	CodeFloodProtection         ErrorCode = "flood_protection"
)

var errorCodes = map[int]ErrorCode{
	0:    CodeOK,
	256:  CodeCommandNotFound,
	512:  CodeInvalidClientID,
	513:  CodeNicknameInUse,
	768:  CodeInvalidChannelID,
	1024: CodeInvalidServerID,
	1538: CodeParameterInvalid,
	1281: CodeDatabaseEmptyResult,
	2568: CodeInsufficientPermissions,
	3329: CodeConnectionBanned,
	3331: CodeFloodProtection,
}

// QueryError is a nonzero terminal result reported by the server for one
// command.
type QueryError struct {
	ID      int
	Message string
	Code    ErrorCode
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: id=%d msg=%s", e.ID, e.Message)
}

// NewQueryError builds a QueryError from a numeric id and an already-escaped
// message, resolving the named code from the lookup table.
func NewQueryError(id int, escapedMessage string) *QueryError {
	code, ok := errorCodes[id]
	if !ok {
		code = CodeUndefined
	}
	return &QueryError{
		ID:      id,
		Message: Unescape(escapedMessage),
		Code:    code,
	}
}

// ParseErrorLine interprets the terminal line concluding a command response.
// It returns nil for result id 0 and a QueryError otherwise. The line is
// expected to start with the literal "error"; id defaults to 0 and msg to
// "ok" when absent.
func ParseErrorLine(line string) *QueryError {
	id := 0
	msg := "ok"
	for _, token := range strings.Split(line, " ")[1:] {
		if value, found := strings.CutPrefix(token, "id="); found {
			if parsed, err := strconv.Atoi(value); err == nil {
				id = parsed
			}
		} else if value, found := strings.CutPrefix(token, "msg="); found {
			msg = value
		}
	}
	if id == 0 {
		return nil
	}
	return NewQueryError(id, msg)
}
