package session

import (
	"errors"
	"fmt"

	"github.com/danmuck/fixctl/internal/protocol"
)

var (
	ErrNotLoggedOn   = errors.New("session: next sequence number requested while not logged on")
	ErrNotConnected  = errors.New("session: not connected")
	ErrNoMessage     = errors.New("session: no message received")
	ErrAckTimeout    = errors.New("session: linked ack timeout")
	ErrSessionClosed = errors.New("session: closed")
)

// UnexpectedMessageError reports a message the current exchange cannot
// accept, such as a resend request during logon.
type UnexpectedMessageError struct {
	Reason  string
	Message *protocol.Message
}

func (e *UnexpectedMessageError) Error() string {
	detail := fmt.Sprintf("(unexpected message: %s)", e.Message)
	if e.Reason == "" {
		return "session: " + detail
	}
	return fmt.Sprintf("session: %s %s", e.Reason, detail)
}
