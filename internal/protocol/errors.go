package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
)

var (
	ErrTagNotInteger = tagvalue.ErrTagNotInteger
	ErrNilGroup      = errors.New("protocol: nil group")
	ErrNoMsgType     = errors.New("protocol: message has no type")
	ErrUnknownKind   = errors.New("protocol: unknown message kind")
)

// RepeatedTagError reports a tag seen twice at one nesting level that did
// not start a new group instance.
type RepeatedTagError struct {
	Tag int
}

func (e *RepeatedTagError) Error() string {
	return fmt.Sprintf("protocol: repeated tag (offending tag: %d)", e.Tag)
}

// EnvelopeError reports a stored body length or checksum that does not match
// the message content.
type EnvelopeError struct {
	BodyLength     string
	WantBodyLength string
	CheckSum       string
	WantCheckSum   string
}

func (e *EnvelopeError) Error() string {
	var parts []string
	if e.BodyLength != e.WantBodyLength {
		parts = append(parts, fmt.Sprintf("body length %q want %q", e.BodyLength, e.WantBodyLength))
	}
	if e.CheckSum != e.WantCheckSum {
		parts = append(parts, fmt.Sprintf("checksum %q want %q", e.CheckSum, e.WantCheckSum))
	}
	return "protocol: invalid envelope: " + strings.Join(parts, ", ")
}

// HeaderError reports a header-bearing message whose layout breaks the
// standard header/trailer ordering.
type HeaderError struct {
	Violations []string
}

func (e *HeaderError) Error() string {
	return "protocol: invalid header: " + strings.Join(e.Violations, "; ")
}
