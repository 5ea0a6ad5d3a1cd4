package tagvalue

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/fixctl/internal/testutil/testlog"
	"github.com/google/go-cmp/cmp"
)

func TestSplitSkipsEmptyAndCopies(t *testing.T) {
	testlog.Start(t)
	raw := []byte("8=FIX.4.2^^35=D^58=a=b^99^")
	got := Split(raw, CaretDelimiter)
	want := []RawField{
		{Tag: []byte("8"), Value: []byte("FIX.4.2")},
		{Tag: []byte("35"), Value: []byte("D")},
		{Tag: []byte("58"), Value: []byte("a=b")},
		{Tag: []byte("99"), Value: []byte{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("split (-want +got):\n%s", diff)
	}
	raw[0] = '9'
	if string(got[0].Tag) != "8" {
		t.Fatalf("split aliases its input")
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	testlog.Start(t)
	raw := []byte("35=D\x0154=1\x0155=AAPL\x01")
	fields, err := Decode(raw, DefaultDelimiter)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []Field{F(35, "D"), F(54, "1"), F(55, "AAPL")}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Fatalf("decode (-want +got):\n%s", diff)
	}
	var soh, caret []byte
	for _, f := range fields {
		soh = AppendField(soh, f.Tag, f.Value, DefaultDelimiter)
		caret = AppendField(caret, f.Tag, f.Value, CaretDelimiter)
	}
	if string(soh) != string(raw) {
		t.Fatalf("append = %q", soh)
	}
	if string(caret) != "35=D^54=1^55=AAPL^" {
		t.Fatalf("append caret = %q", caret)
	}
}

func TestDecodeRejectsNonIntegerTag(t *testing.T) {
	testlog.Start(t)
	for _, raw := range []string{"35=D^x=1^", "=1^", "3 5=D^", "+35=D^1=a^", "035=D^", "0=x^", "-5=x^", "99999999999=x^"} {
		if _, err := Decode([]byte(raw), CaretDelimiter); !errors.Is(err, ErrTagNotInteger) {
			t.Fatalf("%q: expected ErrTagNotInteger, got %v", raw, err)
		}
	}
}

func TestParseTag(t *testing.T) {
	testlog.Start(t)
	for tag, want := range map[string]int{"8": 8, "35": 35, "10": 10, "5001": 5001} {
		got, err := ParseTag([]byte(tag))
		if err != nil || got != want {
			t.Fatalf("ParseTag(%q) = %d, %v", tag, got, err)
		}
		if string(Itoa(got)) != tag {
			t.Fatalf("tag %q does not re-encode", tag)
		}
	}
}

func TestLookupAndSwap(t *testing.T) {
	testlog.Start(t)
	raw := []byte("8=FIX.4.2\x0135=8\x0111=abc\x0111=dup\x01")
	if v, ok := Lookup(raw, 11, DefaultDelimiter); !ok || string(v) != "abc" {
		t.Fatalf("lookup 11 = %q ok=%v", v, ok)
	}
	if _, ok := Lookup(raw, 37, DefaultDelimiter); ok {
		t.Fatalf("lookup of absent tag succeeded")
	}
	caret := SwapDelimiter(raw, DefaultDelimiter, CaretDelimiter)
	if string(caret) != "8=FIX.4.2^35=8^11=abc^11=dup^" {
		t.Fatalf("swap = %q", caret)
	}
	if back := SwapDelimiter(caret, CaretDelimiter, DefaultDelimiter); string(back) != string(raw) {
		t.Fatalf("swap back = %q", back)
	}
}

func TestTimestamps(t *testing.T) {
	testlog.Start(t)
	at := time.Date(2024, 1, 2, 3, 4, 5, 678901000, time.UTC)
	if got := string(Timestamp(at)); got != "20240102-03:04:05.678" {
		t.Fatalf("timestamp = %q", got)
	}
	if got := string(OrderIDTime(at)); got != "030405.678901" {
		t.Fatalf("order id time = %q", got)
	}
	parsed, err := ParseTimestamp([]byte("20240102-03:04:05.678901"))
	if err != nil || !parsed.Equal(at.Truncate(time.Microsecond)) {
		t.Fatalf("parse micro = %v err=%v", parsed, err)
	}
	parsed, err = ParseTimestamp([]byte("20240102-03:04:05.678"))
	if err != nil || !parsed.Equal(at.Truncate(time.Millisecond)) {
		t.Fatalf("parse milli = %v err=%v", parsed, err)
	}
	if _, err := ParseTimestamp([]byte("yesterday")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestItoa(t *testing.T) {
	testlog.Start(t)
	if got := string(Itoa(-12)); got != "-12" {
		t.Fatalf("itoa = %q", got)
	}
}
