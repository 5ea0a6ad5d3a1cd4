package tagvalue

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

const (
	// DefaultDelimiter is SOH, the field separator on the wire.
	DefaultDelimiter byte = 0x01
	// CaretDelimiter is the printable separator used in logs and scenario files.
	CaretDelimiter byte = '^'
	Separator      byte = '='

	maxTagDigits = 9
)

var ErrTagNotInteger = errors.New("tagvalue: tag not integer")

// RawField is one undecoded tag=value token.
type RawField struct {
	Tag   []byte
	Value []byte
}

// Field is one decoded tag=value pair.
type Field struct {
	Tag   int
	Value []byte
}

// F builds a Field from a string value.
func F(tag int, value string) Field {
	return Field{Tag: tag, Value: []byte(value)}
}

// Split tokenizes raw on delim, then each token on its first '='.
// Empty tokens are skipped; a token without '=' yields an empty value.
// Returned slices are copies and do not alias raw.
func Split(raw []byte, delim byte) []RawField {
	fields := make([]RawField, 0, bytes.Count(raw, []byte{delim})+1)
	for len(raw) > 0 {
		var tok []byte
		if i := bytes.IndexByte(raw, delim); i >= 0 {
			tok, raw = raw[:i], raw[i+1:]
		} else {
			tok, raw = raw, nil
		}
		if len(tok) == 0 {
			continue
		}
		tag, value, _ := bytes.Cut(tok, []byte{Separator})
		fields = append(fields, RawField{
			Tag:   bytes.Clone(tag),
			Value: append([]byte{}, value...),
		})
	}
	return fields
}

// ParseTag decodes the tag of a token: a positive decimal with no sign and
// no leading zero, so the tag re-encodes to the same bytes.
func ParseTag(tag []byte) (int, error) {
	if len(tag) == 0 || len(tag) > maxTagDigits || tag[0] == '0' {
		return 0, fmt.Errorf("%w: %q", ErrTagNotInteger, tag)
	}
	n := 0
	for _, b := range tag {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%w: %q", ErrTagNotInteger, tag)
		}
		n = n*10 + int(b-'0')
	}
	return n, nil
}

// Decode tokenizes raw and decodes every tag.
func Decode(raw []byte, delim byte) ([]Field, error) {
	toks := Split(raw, delim)
	out := make([]Field, 0, len(toks))
	for _, tok := range toks {
		tag, err := ParseTag(tok.Tag)
		if err != nil {
			return nil, err
		}
		out = append(out, Field{Tag: tag, Value: tok.Value})
	}
	return out, nil
}

// AppendField appends tag=value<delim> to dst.
func AppendField(dst []byte, tag int, value []byte, delim byte) []byte {
	dst = strconv.AppendInt(dst, int64(tag), 10)
	dst = append(dst, Separator)
	dst = append(dst, value...)
	return append(dst, delim)
}

// Lookup returns the value of the first occurrence of tag in raw.
func Lookup(raw []byte, tag int, delim byte) ([]byte, bool) {
	want := strconv.Itoa(tag)
	for _, tok := range Split(raw, delim) {
		if string(tok.Tag) == want {
			return tok.Value, true
		}
	}
	return nil, false
}

// SwapDelimiter replaces every from byte with to.
func SwapDelimiter(raw []byte, from, to byte) []byte {
	return bytes.ReplaceAll(raw, []byte{from}, []byte{to})
}

// Itoa renders n as a decimal value.
func Itoa(n int) []byte {
	return strconv.AppendInt(nil, int64(n), 10)
}
