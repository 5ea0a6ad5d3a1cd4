package protocol

import (
	"time"

	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
)

// ResetFields selects what Reset regenerates.
type ResetFields struct {
	SendingTime  bool
	TransactTime bool
	ClOrdID      bool
	BodyLength   bool
	CheckSum     bool
}

// ResetAll regenerates timestamps, the client order id and the envelope.
func ResetAll() ResetFields {
	return ResetFields{SendingTime: true, TransactTime: true, ClOrdID: true, BodyLength: true, CheckSum: true}
}

// ResetEnvelope recomputes body length and checksum only.
func ResetEnvelope() ResetFields {
	return ResetFields{BodyLength: true, CheckSum: true}
}

// ResetNone leaves the message untouched.
func ResetNone() ResetFields { return ResetFields{} }

func (r ResetFields) any() bool {
	return r.SendingTime || r.TransactTime || r.ClOrdID || r.BodyLength || r.CheckSum
}

func (r ResetFields) identity() bool {
	return r.SendingTime || r.TransactTime || r.ClOrdID
}

// Options controls message construction and parsing.
type Options struct {
	Delimiter         byte
	ValidateSemantics bool
	ValidateConstruct bool
	AutoReset         bool
	Reset             ResetFields
	Clock             func() time.Time
	OrderIDs          *OrderIDSource
	DefaultHeader     []tagvalue.Field
}

func DefaultOptions() Options {
	return Options{
		Delimiter:         tagvalue.DefaultDelimiter,
		ValidateSemantics: true,
		ValidateConstruct: true,
		Reset:             ResetAll(),
		Clock:             time.Now,
		OrderIDs:          processOrderIDs,
		DefaultHeader:     DefaultHeader(),
	}
}

// DefaultHeader is the header block every header-bearing message starts
// from before its own fields are merged in.
func DefaultHeader() []tagvalue.Field {
	return []tagvalue.Field{
		tagvalue.F(schema.TagBeginString, "FIX.4.2"),
		tagvalue.F(schema.TagBodyLength, ""),
		tagvalue.F(schema.TagEncryptMethod, "0"),
		tagvalue.F(schema.TagHeartBtInt, "20"),
	}
}

func (o Options) withDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = tagvalue.DefaultDelimiter
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.OrderIDs == nil {
		o.OrderIDs = processOrderIDs
	}
	if o.DefaultHeader == nil {
		o.DefaultHeader = DefaultHeader()
	}
	return o
}
