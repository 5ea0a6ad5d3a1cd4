package protocol

import (
	"fmt"
	"strconv"
	"time"

	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
	"github.com/rs/zerolog/log"
)

// Message is a top-level group plus the envelope rules that keep its body
// length, checksum and header ordering consistent.
type Message struct {
	root      *group.Group
	structure *group.Schema
	delim     byte
	autoReset bool
	header    bool
	kind      *schema.Kind
	clock     func() time.Time
	orderIDs  *OrderIDSource
}

// New wraps root as a plain message. root is owned by the message afterwards.
func New(root *group.Group, opts Options) (*Message, error) {
	if root == nil {
		return nil, ErrNilGroup
	}
	root.SetTopLevel(true)
	m := newMessage(root, opts)
	if err := m.init(opts); err != nil {
		return nil, err
	}
	return m, nil
}

func newMessage(root *group.Group, opts Options) *Message {
	opts = opts.withDefaults()
	return &Message{
		root:     root,
		delim:    opts.Delimiter,
		clock:    opts.Clock,
		orderIDs: opts.OrderIDs,
	}
}

// init validates and resets per opts, then enables auto reset.
func (m *Message) init(opts Options) error {
	if opts.ValidateSemantics {
		if err := m.root.ValidateSemantics(); err != nil {
			return err
		}
	}
	if opts.Reset.any() {
		m.Reset(m.seqNum(), opts.Reset)
		if opts.ValidateSemantics {
			if err := m.CheckEnvelope(); err != nil {
				return err
			}
		}
	}
	m.autoReset = opts.AutoReset
	log.Debug().
		Str("msg_type", string(m.MsgType())).
		Int("fields", m.root.Len()).
		Bool("header", m.header).
		Msg("protocol.Message init")
	return nil
}

func (m *Message) Root() *group.Group { return m.root }

// Structure returns the schema the message was parsed with, if any.
func (m *Message) Structure() *group.Schema { return m.structure }

// Kind returns the kind the message was built as.
func (m *Message) Kind() (schema.Kind, bool) {
	if m.kind == nil {
		return schema.Kind{}, false
	}
	return *m.kind, true
}

func (m *Message) HasHeader() bool { return m.header }

func (m *Message) Delimiter() byte { return m.delim }

// SetDelimiter changes the separator used by Bytes.
func (m *Message) SetDelimiter(d byte) { m.delim = d }

func (m *Message) AutoReset() bool { return m.autoReset }

// SetAutoReset toggles the full reset that follows every mutation.
func (m *Message) SetAutoReset(on bool) { m.autoReset = on }

// Reset regenerates the fields selected by fields, applies extra, then
// recomputes the envelope and restores canonical header order. seq > 0
// replaces 34.
func (m *Message) Reset(seq int, fields ResetFields, extra ...tagvalue.Field) {
	auto := m.autoReset
	m.autoReset = false
	defer func() { m.autoReset = auto }()

	g := m.root
	now := m.clock().UTC()
	if fields.SendingTime {
		g.SetField(schema.TagSendingTime, tagvalue.Timestamp(now))
	}
	if fields.TransactTime {
		g.SetField(schema.TagTransactTime, tagvalue.Timestamp(now))
	}
	if fields.ClOrdID {
		g.SetField(schema.TagClOrdID, m.orderIDs.ClOrdID(now))
	}
	if seq > 0 {
		g.SetField(schema.TagSeqNum, tagvalue.Itoa(seq))
	}
	for _, f := range extra {
		g.SetField(f.Tag, f.Value)
	}
	if fields.BodyLength {
		g.SetField(schema.TagBodyLength, tagvalue.Itoa(BodyLength(g)))
	}
	m.sinkBody()
	if fields.CheckSum {
		g.SetField(schema.TagCheckSum, FormatCheckSum(CheckSum(g)))
	}
	m.canonicalize()
}

// sinkBody moves body tags behind the header block, keeping relative order.
func (m *Message) sinkBody() {
	for _, tag := range m.root.Tags() {
		if !schema.IsHeaderTag(tag) {
			m.root.MoveToEnd(tag)
		}
	}
}

// canonicalize puts 8, 9, 35 first and 10 last.
func (m *Message) canonicalize() {
	g := m.root
	m.sinkBody()
	g.MoveToEnd(schema.TagCheckSum)
	g.MoveToFront(schema.TagMsgType)
	g.MoveToFront(schema.TagBodyLength)
	g.MoveToFront(schema.TagBeginString)
}

func (m *Message) afterMutation() {
	if m.autoReset {
		m.Reset(m.seqNum(), ResetAll())
	}
}

// Get returns the value at p.
func (m *Message) Get(p group.Path) (group.Value, error) { return m.root.Get(p) }

// GetBytes returns the scalar at p.
func (m *Message) GetBytes(p group.Path) ([]byte, error) { return m.root.GetBytes(p) }

// Set stores v at p.
func (m *Message) Set(p group.Path, v group.Value) error {
	if err := m.root.Set(p, v); err != nil {
		return err
	}
	m.afterMutation()
	return nil
}

// Delete removes the value at p.
func (m *Message) Delete(p group.Path) error {
	if err := m.root.Delete(p); err != nil {
		return err
	}
	m.afterMutation()
	return nil
}

// Field returns the top-level scalar at tag.
func (m *Message) Field(tag int) ([]byte, bool) { return m.root.Field(tag) }

// SetField stores a top-level scalar.
func (m *Message) SetField(tag int, value []byte) {
	m.root.SetField(tag, value)
	m.afterMutation()
}

// RemoveField drops a top-level tag.
func (m *Message) RemoveField(tag int) bool {
	ok := m.root.Remove(tag)
	if ok {
		m.afterMutation()
	}
	return ok
}

func (m *Message) Has(tag int) bool { return m.root.Has(tag) }

func (m *Message) Len() int { return m.root.Len() }

func (m *Message) Tags() []int { return m.root.Tags() }

// InnerGroupTags lists the top-level tags holding repeating groups.
func (m *Message) InnerGroupTags() []int { return m.root.InnerGroupTags() }

func (m *Message) field(tag int) []byte {
	b, _ := m.root.Field(tag)
	return b
}

func (m *Message) MsgType() []byte { return m.field(schema.TagMsgType) }
func (m *Message) ClOrdID() []byte { return m.field(schema.TagClOrdID) }
func (m *Message) OrderID() []byte { return m.field(schema.TagOrderID) }
func (m *Message) CheckSum() []byte { return m.field(schema.TagCheckSum) }
func (m *Message) BodyLength() []byte { return m.field(schema.TagBodyLength) }
func (m *Message) Qty() []byte { return m.field(schema.TagOrderQty) }
func (m *Message) Price() []byte { return m.field(schema.TagPrice) }
func (m *Message) OrdType() []byte { return m.field(schema.TagOrdType) }
func (m *Message) Side() []byte { return m.field(schema.TagSide) }
func (m *Message) Symbol() []byte { return m.field(schema.TagSymbol) }

// SeqNum parses 34.
func (m *Message) SeqNum() (int, error) {
	raw, ok := m.root.Field(schema.TagSeqNum)
	if !ok {
		return 0, fmt.Errorf("protocol: tag %d not set", schema.TagSeqNum)
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("protocol: sequence number %q: %w", raw, err)
	}
	return n, nil
}

func (m *Message) seqNum() int {
	n, _ := m.SeqNum()
	return n
}

func (m *Message) SetSeqNum(n int) { m.SetField(schema.TagSeqNum, tagvalue.Itoa(n)) }
func (m *Message) SetQty(n int) { m.SetField(schema.TagOrderQty, tagvalue.Itoa(n)) }
func (m *Message) SetPrice(px string) { m.SetField(schema.TagPrice, []byte(px)) }
func (m *Message) SetClOrdID(id []byte) { m.SetField(schema.TagClOrdID, id) }
func (m *Message) SetOrdType(v []byte) { m.SetField(schema.TagOrdType, v) }
func (m *Message) SetSide(v []byte) { m.SetField(schema.TagSide, v) }
func (m *Message) SetSymbol(v []byte) { m.SetField(schema.TagSymbol, v) }

// IsValidBodyLength reports whether 9 matches the content.
func (m *Message) IsValidBodyLength() bool {
	return string(m.BodyLength()) == strconv.Itoa(BodyLength(m.root))
}

// IsValidChecksum reports whether 10 matches the content.
func (m *Message) IsValidChecksum() bool {
	return string(m.CheckSum()) == string(FormatCheckSum(CheckSum(m.root)))
}

// IsValidHeaderTrailer reports whether both envelope fields are current.
func (m *Message) IsValidHeaderTrailer() bool {
	return m.IsValidBodyLength() && m.IsValidChecksum()
}

// CheckEnvelope returns an EnvelopeError when body length or checksum is stale.
func (m *Message) CheckEnvelope() error {
	if m.IsValidHeaderTrailer() {
		return nil
	}
	return &EnvelopeError{
		BodyLength:     string(m.BodyLength()),
		WantBodyLength: strconv.Itoa(BodyLength(m.root)),
		CheckSum:       string(m.CheckSum()),
		WantCheckSum:   string(FormatCheckSum(CheckSum(m.root))),
	}
}

// ValidateSemantics checks the whole group tree.
func (m *Message) ValidateSemantics() error { return m.root.ValidateSemantics() }

func (m *Message) IsValidSemantics() bool { return m.root.IsValidSemantics() }

// Bytes serializes the message with its delimiter. Header-bearing messages
// must pass ValidateCond first.
func (m *Message) Bytes() ([]byte, error) {
	if err := m.ValidateCond(); err != nil {
		return nil, err
	}
	return m.root.Build(m.delim)
}

// Clone returns an independent copy sharing the structure and id source.
func (m *Message) Clone() *Message {
	out := *m
	out.root = m.root.Clone()
	return &out
}

func (m *Message) String() string { return m.root.String() }
