// File: protocol/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"errors"
	"fmt"
)

// ErrIncomplete reports that more bytes are needed before a frame can be
// decoded. It is not a failure.
var ErrIncomplete = errors.New("incomplete frame")

// CloseError is a protocol verdict: the connection must be closed with Code.
type CloseError struct {
	Code   CloseCode
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket close %d (%s): %s", e.Code, e.Code, e.Reason)
}

func closeErr(code CloseCode, reason string) *CloseError {
	return &CloseError{Code: code, Reason: reason}
}

// CloseCodeOf extracts the close code carried by err, if any.
func CloseCodeOf(err error) (CloseCode, bool) {
	var ce *CloseError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return 0, false
}
