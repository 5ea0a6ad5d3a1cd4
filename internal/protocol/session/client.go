package session

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/fixctl/internal/observability"
	"github.com/danmuck/fixctl/internal/protocol"
	"github.com/danmuck/fixctl/internal/protocol/frame"
	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
	"github.com/danmuck/fixctl/internal/render"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DialFunc opens the transport. net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Client is one FIX session. I/O methods are meant for a single goroutine;
// Status, Pending and the sequence accessors are safe to call concurrently.
type Client struct {
	name    string
	cfg     Config
	rng     *rand.Rand
	dial    DialFunc
	kinds   *schema.Registry
	opts    protocol.Options
	pending *PendingOrders
	traffic *TrafficLog
	logger  zerolog.Logger

	mu       sync.Mutex
	conn     net.Conn
	reader   *bufio.Reader
	seq      int
	loggedOn bool

	sent     atomic.Int64
	received atomic.Int64
	closed   atomic.Bool
}

// Status is a point-in-time view of the session.
type Status struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	SenderCompID string `json:"sender_comp_id"`
	TargetCompID string `json:"target_comp_id"`
	Connected    bool   `json:"connected"`
	LoggedOn     bool   `json:"logged_on"`
	NextSeq      int    `json:"next_seq"`
	Sent         int64  `json:"sent"`
	Received     int64  `json:"received"`
	Pending      int    `json:"pending"`
}

type Option func(*Client)

// WithDialer replaces the TCP dialer.
func WithDialer(d DialFunc) Option {
	return func(c *Client) { c.dial = d }
}

// WithRegistry sets the kinds used to recognise inbound group structures.
func WithRegistry(r *schema.Registry) Option {
	return func(c *Client) { c.kinds = r }
}

// WithMessageOptions overrides outbound message construction.
func WithMessageOptions(opts protocol.Options) Option {
	return func(c *Client) { c.opts = opts }
}

// WithTrafficLog replaces the traffic log opened from Config.TrafficLog.
func WithTrafficLog(t *TrafficLog) Option {
	return func(c *Client) { c.traffic = t }
}

func NewClient(name string, cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		name = "default"
	}
	c := &Client{
		name:    name,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		kinds:   schema.NewRegistry(schema.Builtins()...),
		opts:    protocol.DefaultOptions(),
		pending: NewPendingOrders(),
		logger:  log.Logger.With().Str("session", name).Logger(),
		seq:     1,
	}
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAliveConfig: cfg.KeepAlive}
	c.dial = dialer.DialContext
	for _, opt := range opts {
		opt(c)
	}
	if c.traffic == nil && cfg.TrafficLog != "" {
		t, err := OpenTrafficLog(cfg.TrafficLog)
		if err != nil {
			return nil, err
		}
		c.traffic = t
	}
	return c, nil
}

func (c *Client) Name() string { return c.name }

func (c *Client) Config() Config { return c.cfg }

func (c *Client) Pending() *PendingOrders { return c.pending }

// Connect dials the counterparty, retrying with backoff, and resets the
// sequence to 1.
func (c *Client) Connect(ctx context.Context) error {
	var attempt int
	for {
		if c.closed.Load() {
			return ErrSessionClosed
		}
		attempt++
		conn, err := c.dialOnce(ctx)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.reader = bufio.NewReader(conn)
			c.seq = 1
			c.loggedOn = false
			c.mu.Unlock()
			c.logger.Info().Str("addr", c.cfg.Address).Int("attempt", attempt).Msg("session.Connect")
			return nil
		}
		c.logger.Warn().Err(err).Str("addr", c.cfg.Address).Int("attempt", attempt).Msg("session.Connect dial failed")
		observability.RecordSessionError(c.name, "dial")
		if !c.shouldRetry(attempt) {
			return err
		}
		if err := c.sleepBackoff(ctx, attempt); err != nil {
			return err
		}
	}
}

func (c *Client) dialOnce(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	rawConn, err := c.dial(dialCtx, "tcp", c.cfg.Address)
	if err != nil {
		return nil, err
	}
	if !c.cfg.TLS.Enabled {
		return rawConn, nil
	}
	tlsCfg, err := c.cfg.clientTLSConfig()
	if err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	conn := tls.Client(rawConn, tlsCfg)
	if err := conn.HandshakeContext(dialCtx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Client) shouldRetry(attempt int) bool {
	if c.cfg.MaxConnectAttempts <= 0 {
		return true
	}
	return attempt < c.cfg.MaxConnectAttempts
}

func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	delay := NextBackoffDelay(c.cfg.Backoff, attempt, c.rng)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Close drops the transport without logging out.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.reader = nil
	c.loggedOn = false
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Shutdown closes the transport and the traffic log.
func (c *Client) Shutdown() error {
	c.closed.Store(true)
	return errors.Join(c.Close(), c.traffic.Close())
}

// Reconnect closes, dials again with sequence 1 and logs on when AutoLogon
// is set.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	if err := c.Connect(ctx); err != nil {
		return err
	}
	if c.cfg.AutoLogon {
		return c.Logon(ctx)
	}
	return nil
}

// NextSeq returns and advances the outbound sequence number. It refuses
// while not logged on unless force is set.
func (c *Client) NextSeq(force bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !force && !c.loggedOn {
		return 0, ErrNotLoggedOn
	}
	n := c.seq
	c.seq++
	return n, nil
}

func (c *Client) LoggedOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedOn
}

func (c *Client) setLoggedOn(on bool) {
	c.mu.Lock()
	c.loggedOn = on
	c.mu.Unlock()
}

func (c *Client) Status() Status {
	c.mu.Lock()
	connected, loggedOn, seq := c.conn != nil, c.loggedOn, c.seq
	c.mu.Unlock()
	return Status{
		Name:         c.name,
		Address:      c.cfg.Address,
		SenderCompID: c.cfg.SenderCompID,
		TargetCompID: c.cfg.TargetCompID,
		Connected:    connected,
		LoggedOn:     loggedOn,
		NextSeq:      seq,
		Sent:         c.sent.Load(),
		Received:     c.received.Load(),
		Pending:      c.pending.Len(),
	}
}

// headerFill is the session's identity block: 8, 49 and 56.
func (c *Client) headerFill() []tagvalue.Field {
	return []tagvalue.Field{
		tagvalue.F(schema.TagBeginString, c.cfg.BeginString),
		tagvalue.F(schema.TagSenderCompID, c.cfg.SenderCompID),
		tagvalue.F(schema.TagTargetCompID, c.cfg.TargetCompID),
	}
}

// NewMessage builds a kind from the session identity, an optional next
// sequence number and extra fields.
func (c *Client) NewMessage(k schema.Kind, extra []tagvalue.Field, withSeq bool) (*protocol.Message, error) {
	g := group.FromFields(c.headerFill()...)
	if withSeq {
		n, err := c.NextSeq(false)
		if err != nil {
			return nil, err
		}
		g.SetField(schema.TagSeqNum, tagvalue.Itoa(n))
	}
	for _, f := range extra {
		g.SetField(f.Tag, f.Value)
	}
	return protocol.NewKind(k, g, c.opts)
}

// adminMessage builds a session-level message with a forced sequence number.
func (c *Client) adminMessage(k schema.Kind, extra ...tagvalue.Field) (*protocol.Message, error) {
	n, err := c.NextSeq(true)
	if err != nil {
		return nil, err
	}
	fields := append(c.headerFill(), tagvalue.F(schema.TagSeqNum, strconv.Itoa(n)))
	g := group.FromFields(append(fields, extra...)...)
	return protocol.NewKind(k, g, c.opts)
}

// Send serializes m and writes it.
func (c *Client) Send(ctx context.Context, m *protocol.Message) error {
	m.SetDelimiter(tagvalue.DefaultDelimiter)
	raw, err := m.Bytes()
	if err != nil {
		return err
	}
	if err := c.SendRaw(ctx, raw); err != nil {
		return err
	}
	c.trackOrder(m)
	return nil
}

// SendRaw writes already serialized SOH-delimited bytes.
func (c *Client) SendRaw(ctx context.Context, raw []byte) error {
	conn, _, err := c.transport()
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(c.deadline(ctx, c.cfg.WriteTimeout)); err != nil {
		return err
	}
	if err := frame.WriteFrame(conn, raw, c.cfg.Limits); err != nil {
		observability.RecordSessionError(c.name, "send")
		return err
	}
	msgType, _ := tagvalue.Lookup(raw, schema.TagMsgType, tagvalue.DefaultDelimiter)
	c.sent.Add(1)
	observability.RecordMessage(c.name, "out", string(msgType))
	c.logTraffic(">>", msgType, raw)
	if err := c.traffic.Outbound(raw); err != nil {
		c.logger.Warn().Err(err).Msg("session.traffic write failed")
	}
	return nil
}

// Recv reads and parses one inbound message.
func (c *Client) Recv(ctx context.Context) (*protocol.Message, error) {
	conn, reader, err := c.transport()
	if err != nil {
		return nil, err
	}
	if err := conn.SetReadDeadline(c.deadline(ctx, c.cfg.ReadTimeout)); err != nil {
		return nil, err
	}
	f, err := frame.ReadFrame(reader, c.cfg.Limits)
	if err != nil {
		observability.RecordSessionError(c.name, "recv")
		if errors.Is(err, io.EOF) || errors.Is(err, frame.ErrShortFrame) {
			return nil, fmt.Errorf("%w: %v", ErrNoMessage, err)
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, fmt.Errorf("%w: %v", ErrNoMessage, err)
		}
		return nil, err
	}
	msgType, _ := tagvalue.Lookup(f.Raw, schema.TagMsgType, tagvalue.DefaultDelimiter)
	c.received.Add(1)
	observability.RecordMessage(c.name, "in", string(msgType))
	c.logTraffic("<<", msgType, f.Raw)
	if err := c.traffic.Inbound(f.Raw); err != nil {
		c.logger.Warn().Err(err).Msg("session.traffic write failed")
	}
	opts := c.opts
	opts.Delimiter = tagvalue.DefaultDelimiter
	m, err := protocol.ParseKnown(f.Raw, c.kinds, opts)
	if err != nil {
		observability.RecordSessionError(c.name, "parse")
		return nil, err
	}
	c.observeAck(m)
	return m, nil
}

// SendRecv sends m and returns the next inbound message.
func (c *Client) SendRecv(ctx context.Context, m *protocol.Message) (*protocol.Message, error) {
	if err := c.Send(ctx, m); err != nil {
		return nil, err
	}
	return c.Recv(ctx)
}

// Logon sends a logon and waits for the counterparty's, answering test
// requests along the way.
func (c *Client) Logon(ctx context.Context) error {
	c.logger.Info().Msg("session.Logon logging on")
	m, err := c.adminMessage(schema.Logon, tagvalue.F(schema.TagHeartBtInt, strconv.Itoa(c.cfg.HeartBtInt)))
	if err != nil {
		return err
	}
	if err := c.Send(ctx, m); err != nil {
		return err
	}
	c.setLoggedOn(true)
	for {
		in, err := c.Recv(ctx)
		if err != nil {
			return err
		}
		switch string(in.MsgType()) {
		case schema.MsgTypeLogon:
			c.logger.Info().Msg("session.Logon response received")
			return nil
		case schema.MsgTypeTestRequest:
			if err := c.answerTestRequest(ctx, in); err != nil {
				return err
			}
		case schema.MsgTypeResendRequest:
			return &UnexpectedMessageError{Reason: "seqnum is off", Message: in}
		default:
			return &UnexpectedMessageError{Reason: "non logon response", Message: in}
		}
	}
}

// Logout sends a logout and waits for the counterparty's, tolerating
// execution reports still in flight.
func (c *Client) Logout(ctx context.Context) error {
	c.logger.Info().Msg("session.Logout logging out")
	m, err := c.adminMessage(schema.Logout)
	if err != nil {
		return err
	}
	if err := c.Send(ctx, m); err != nil {
		return err
	}
	for {
		in, err := c.Recv(ctx)
		if err != nil {
			return err
		}
		switch string(in.MsgType()) {
		case schema.MsgTypeExecutionReport:
			c.logger.Info().Str("cl_ord_id", string(in.ClOrdID())).Msg("session.Logout ack for others received")
		case schema.MsgTypeLogout:
			c.setLoggedOn(false)
			c.logger.Info().Msg("session.Logout response received")
			return nil
		case schema.MsgTypeTestRequest:
			if err := c.answerTestRequest(ctx, in); err != nil {
				return err
			}
		case schema.MsgTypeResendRequest:
			return &UnexpectedMessageError{Reason: "seqnum is off", Message: in}
		default:
			return &UnexpectedMessageError{Reason: "non logout response", Message: in}
		}
	}
}

func (c *Client) answerTestRequest(ctx context.Context, in *protocol.Message) error {
	id, _ := in.Field(schema.TagTestReqID)
	c.logger.Debug().Str("test_req_id", string(id)).Msg("session test request, sending heartbeat")
	return c.SendHeartbeat(ctx, id)
}

// SendHeartbeat sends a heartbeat, echoing testReqID when non-empty.
func (c *Client) SendHeartbeat(ctx context.Context, testReqID []byte) error {
	var extra []tagvalue.Field
	if len(testReqID) > 0 {
		extra = append(extra, tagvalue.Field{Tag: schema.TagTestReqID, Value: testReqID})
	}
	m, err := c.adminMessage(schema.Heartbeat, extra...)
	if err != nil {
		return err
	}
	return c.Send(ctx, m)
}

// RecvLinked reads until a message carries id at tag (11 or 37) with a
// sequence number of at least minSeq. Unrelated messages are skipped and
// test requests answered. A lapsed ctx or read timeout yields ErrAckTimeout.
func (c *Client) RecvLinked(ctx context.Context, tag int, id []byte, minSeq int) (*protocol.Message, error) {
	for {
		in, err := c.Recv(ctx)
		if err != nil {
			if errors.Is(err, ErrNoMessage) || ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s=%s: %v", ErrAckTimeout, strconv.Itoa(tag), id, err)
			}
			return nil, err
		}
		if string(in.MsgType()) == schema.MsgTypeTestRequest {
			if err := c.answerTestRequest(ctx, in); err != nil {
				return nil, err
			}
			continue
		}
		got, ok := in.Field(tag)
		if !ok || !bytes.Equal(got, id) {
			continue
		}
		if minSeq > 0 {
			if n, err := in.SeqNum(); err != nil || n < minSeq {
				continue
			}
		}
		return in, nil
	}
}

func (c *Client) transport() (net.Conn, *bufio.Reader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, nil, ErrNotConnected
	}
	return c.conn, c.reader, nil
}

func (c *Client) deadline(ctx context.Context, fallback time.Duration) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		return dl
	}
	return time.Now().Add(fallback)
}

func (c *Client) trackOrder(m *protocol.Message) {
	msgType := string(m.MsgType())
	switch msgType {
	case schema.MsgTypeNewOrderSingle, schema.MsgTypeOrderCancelReplace, schema.MsgTypeOrderCancel:
	default:
		return
	}
	orig, _ := m.Field(schema.TagOrigClOrdID)
	c.pending.Track(PendingOrder{
		ClOrdID:     string(m.ClOrdID()),
		OrigClOrdID: string(orig),
		MsgType:     msgType,
		Symbol:      string(m.Symbol()),
		SeqNum:      seqOrZero(m),
		SentAt:      time.Now(),
	})
	observability.SetPendingOrders(c.name, c.pending.Len())
}

func (c *Client) observeAck(m *protocol.Message) {
	if string(m.MsgType()) != schema.MsgTypeExecutionReport {
		return
	}
	status, _ := m.Field(schema.TagOrdStatus)
	item, ok := c.pending.Ack(string(m.ClOrdID()), string(status), time.Now())
	if !ok {
		return
	}
	observability.RecordAckLatency(c.name, item.MsgType, item.LastAckAt.Sub(item.SentAt))
	observability.SetPendingOrders(c.name, c.pending.Len())
}

func seqOrZero(m *protocol.Message) int {
	n, _ := m.SeqNum()
	return n
}

func (c *Client) logTraffic(dir string, msgType, raw []byte) {
	event := c.logger.Info()
	switch string(msgType) {
	case schema.MsgTypeHeartbeat, schema.MsgTypeTestRequest, schema.MsgTypeLogon, schema.MsgTypeLogout:
		event = c.logger.Debug()
	}
	line := render.Filtered(raw, tagvalue.DefaultDelimiter, c.cfg.FilterTags)
	if len(c.cfg.FilterTags) == 0 {
		line = render.Caret(raw, tagvalue.DefaultDelimiter)
	}
	event = event.Str("dir", dir).Str("msg_type", string(msgType))
	if sent, ok := tagvalue.Lookup(raw, schema.TagSendingTime, tagvalue.DefaultDelimiter); ok {
		if at, err := tagvalue.ParseTimestamp(sent); err == nil {
			event = event.Dur("since_sending_time", time.Since(at))
		}
	}
	event.Msg(line)
}
