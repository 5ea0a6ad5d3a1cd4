package frame

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	soh        byte = 0x01
	trailerLen      = 7 // 10=NNN<SOH>
)

var (
	ErrShortFrame       = errors.New("frame: short frame")
	ErrBadBeginString   = errors.New("frame: message does not start with 8=")
	ErrBadBodyLength    = errors.New("frame: second field is not a valid 9=")
	ErrFieldTooLong     = errors.New("frame: prefix field too long")
	ErrBodyTooLarge     = errors.New("frame: body too large")
	ErrBadTrailer       = errors.New("frame: malformed 10= trailer")
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")
	ErrFrameTooLarge    = errors.New("frame: message too large")
)

// Frame is one complete SOH-delimited message as read off the wire.
type Frame struct {
	BeginString []byte
	BodyLength  int
	CheckSum    int
	Raw         []byte
}

// Body returns the bytes counted by 9.
func (f Frame) Body() []byte {
	end := len(f.Raw) - trailerLen
	return f.Raw[end-f.BodyLength : end]
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPrefixBytes int
	MaxBodyBytes   int
	VerifyChecksum bool
}

func DefaultLimits() Limits {
	return Limits{
		MaxPrefixBytes: 32,
		MaxBodyBytes:   1024 * 1024,
		VerifyChecksum: true,
	}
}

// ReadFrame reads one message, using 9 to find the trailer. A clean EOF
// before the first byte is returned as io.EOF.
func ReadFrame(r *bufio.Reader, limits Limits) (Frame, error) {
	begin, err := readField(r, limits.MaxPrefixBytes)
	if err != nil {
		if errors.Is(err, io.EOF) && len(begin) == 0 {
			return Frame{}, io.EOF
		}
		return Frame{}, shortOr(err)
	}
	beginValue, ok := bytes.CutPrefix(begin, []byte("8="))
	if !ok || len(beginValue) == 0 {
		return Frame{}, fmt.Errorf("%w: %q", ErrBadBeginString, begin)
	}

	lenField, err := readField(r, limits.MaxPrefixBytes)
	if err != nil {
		return Frame{}, shortOr(err)
	}
	lenValue, ok := bytes.CutPrefix(lenField, []byte("9="))
	if !ok {
		return Frame{}, fmt.Errorf("%w: %q", ErrBadBodyLength, lenField)
	}
	n, err := strconv.Atoi(string(lenValue))
	if err != nil || n < 0 {
		return Frame{}, fmt.Errorf("%w: %q", ErrBadBodyLength, lenField)
	}
	if limits.MaxBodyBytes > 0 && n > limits.MaxBodyBytes {
		return Frame{}, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, n, limits.MaxBodyBytes)
	}

	prefix := len(begin) + len(lenField) + 2
	raw := make([]byte, prefix+n+trailerLen)
	copy(raw, begin)
	raw[len(begin)] = soh
	copy(raw[len(begin)+1:], lenField)
	raw[prefix-1] = soh
	if _, err := io.ReadFull(r, raw[prefix:]); err != nil {
		return Frame{}, shortOr(err)
	}

	trailer := raw[prefix+n:]
	if !bytes.HasPrefix(trailer, []byte("10=")) || trailer[trailerLen-1] != soh {
		return Frame{}, fmt.Errorf("%w: %q", ErrBadTrailer, trailer)
	}
	sum, err := strconv.Atoi(string(trailer[3 : trailerLen-1]))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %q", ErrBadTrailer, trailer)
	}
	if limits.VerifyChecksum {
		if got := Sum(raw[:prefix+n]); got != sum {
			return Frame{}, fmt.Errorf("%w: trailer %03d computed %03d", ErrChecksumMismatch, sum, got)
		}
	}
	return Frame{BeginString: beginValue, BodyLength: n, CheckSum: sum, Raw: raw}, nil
}

// WriteFrame writes raw after checking it against limits.
func WriteFrame(w io.Writer, raw []byte, limits Limits) error {
	if limits.MaxBodyBytes > 0 && len(raw) > limits.MaxBodyBytes+2*limits.MaxPrefixBytes+trailerLen {
		return ErrFrameTooLarge
	}
	if !bytes.HasPrefix(raw, []byte("8=")) {
		return ErrBadBeginString
	}
	if len(raw) < trailerLen || raw[len(raw)-1] != soh {
		return ErrBadTrailer
	}
	_, err := w.Write(raw)
	return err
}

// Sum is the modulo 256 byte sum carried in 10.
func Sum(b []byte) int {
	n := 0
	for _, c := range b {
		n += int(c)
	}
	return n % 256
}

func readField(r *bufio.Reader, max int) ([]byte, error) {
	var out []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			return out, err
		}
		if c == soh {
			return out, nil
		}
		out = append(out, c)
		if max > 0 && len(out) > max {
			return out, ErrFieldTooLong
		}
	}
}

func shortOr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrShortFrame
	}
	return err
}
