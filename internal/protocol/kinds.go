package protocol

import (
	"fmt"

	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
)

// NewWithHeader builds a header-bearing message from g: the default header
// block first, then g with its body tags moved behind its header tags.
func NewWithHeader(g *group.Group, opts Options) (*Message, error) {
	if g == nil {
		return nil, ErrNilGroup
	}
	return newWithHeader(g.Clone(), nil, opts)
}

// NewKind builds a header-bearing message of kind k. Fields in g override
// the kind's defaults.
func NewKind(k schema.Kind, g *group.Group, opts Options) (*Message, error) {
	seed := k.Group()
	if g != nil {
		seed.Merge(g)
	}
	return newWithHeader(seed, &k, opts)
}

func newWithHeader(body *group.Group, k *schema.Kind, opts Options) (*Message, error) {
	opts = opts.withDefaults()
	root := group.FromFields(opts.DefaultHeader...).
		SetTopLevel(true).
		Require(schema.HeaderRequired()...)
	if opts.Reset.SendingTime {
		root.SetField(schema.TagSendingTime, nil)
	}
	if opts.Reset.TransactTime {
		root.SetField(schema.TagTransactTime, nil)
	}
	if opts.Reset.ClOrdID {
		root.SetField(schema.TagClOrdID, nil)
	}
	for _, tag := range body.Tags() {
		if !schema.IsHeaderTag(tag) {
			body.MoveToEnd(tag)
		}
	}
	root.Merge(body)

	m := newMessage(root, opts)
	m.header = true
	m.kind = k
	if k != nil {
		m.structure = k.Structure
	}
	m.canonicalize()
	if err := m.init(opts); err != nil {
		return nil, err
	}
	return m, nil
}

func NewLogon(g *group.Group, opts Options) (*Message, error) {
	return NewKind(schema.Logon, g, opts)
}

func NewLogout(g *group.Group, opts Options) (*Message, error) {
	return NewKind(schema.Logout, g, opts)
}

func NewHeartbeat(g *group.Group, opts Options) (*Message, error) {
	return NewKind(schema.Heartbeat, g, opts)
}

func NewTestRequest(g *group.Group, opts Options) (*Message, error) {
	return NewKind(schema.TestRequest, g, opts)
}

func NewOrder(g *group.Group, opts Options) (*Message, error) {
	return NewKind(schema.NewOrderSingle, g, opts)
}

// NewAmend builds an order cancel/replace request.
func NewAmend(g *group.Group, opts Options) (*Message, error) {
	return NewKind(schema.OrderCancelReplace, g, opts)
}

func NewCancel(g *group.Group, opts Options) (*Message, error) {
	return NewKind(schema.OrderCancel, g, opts)
}

func NewExecutionReport(g *group.Group, opts Options) (*Message, error) {
	return NewKind(schema.ExecutionReport, g, opts)
}

func NewSecurityListRequest(g *group.Group, opts Options) (*Message, error) {
	return NewKind(schema.SecurityListRequest, g, opts)
}

func NewSecurityList(g *group.Group, opts Options) (*Message, error) {
	return NewKind(schema.SecurityList, g, opts)
}

// ParseAs parses raw with the kind's structure into a header-bearing
// message of that kind. Fields and envelope are kept as received; the
// kind's required tags and conditions apply to semantic validation.
func ParseAs(raw []byte, k schema.Kind, opts Options) (*Message, error) {
	opts = opts.withDefaults()
	root, err := parseGroup(raw, k.Structure, opts)
	if err != nil {
		return nil, err
	}
	rules := k.Group()
	root.SetTopLevel(true).
		Require(schema.HeaderRequired()...).
		Require(rules.Required()...).
		When(rules.Conditions()...)

	m := newMessage(root, opts)
	m.header = true
	m.kind = &k
	m.structure = k.Structure
	opts.Reset = ResetNone()
	if err := m.init(opts); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseKnown detects the message type of raw and parses it as the matching
// kind in reg. Unknown types parse as plain messages.
func ParseKnown(raw []byte, reg *schema.Registry, opts Options) (*Message, error) {
	opts = opts.withDefaults()
	msgType, ok := tagvalue.Lookup(raw, schema.TagMsgType, opts.Delimiter)
	if !ok {
		return nil, ErrNoMsgType
	}
	k, ok := reg.Lookup(string(msgType))
	if !ok {
		return Parse(raw, nil, opts)
	}
	return ParseAs(raw, k, opts)
}

// KindOf resolves the kind named by name or message type in reg.
func KindOf(reg *schema.Registry, nameOrType string) (schema.Kind, error) {
	if k, ok := reg.ByName(nameOrType); ok {
		return k, nil
	}
	if k, ok := reg.Lookup(nameOrType); ok {
		return k, nil
	}
	return schema.Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, nameOrType)
}
