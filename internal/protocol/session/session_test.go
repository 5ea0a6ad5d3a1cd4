package session

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/fixctl/internal/protocol"
	"github.com/danmuck/fixctl/internal/protocol/frame"
	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
	"github.com/danmuck/fixctl/internal/testutil/testlog"
	"github.com/danmuck/fixctl/internal/testutil/tlstest"
)

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestNextBackoffDelayJitterRange(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(7))
	got := NextBackoffDelay(cfg, 1, rng)
	if got < 125*time.Millisecond || got > 375*time.Millisecond {
		t.Fatalf("jitter out of range: %v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
	cfg.Address = "127.0.0.1:9878"
	cfg.SenderCompID = "CLIENT"
	if err := cfg.Validate(); !errors.Is(err, ErrCompIDRequired) {
		t.Fatalf("expected ErrCompIDRequired, got %v", err)
	}
	cfg.TargetCompID = "VENUE"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigWithDefaultsKeepsOverrides(t *testing.T) {
	testlog.Start(t)
	cfg := Config{HeartBtInt: 10, FilterTags: []int{}}.WithDefaults()
	if cfg.HeartBtInt != 10 {
		t.Fatalf("heartbeat overridden: %d", cfg.HeartBtInt)
	}
	if len(cfg.FilterTags) != 0 {
		t.Fatalf("explicit empty filter replaced: %v", cfg.FilterTags)
	}
	if cfg.BeginString != "FIX.4.2" || cfg.ReadTimeout != 5*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Limits != frame.DefaultLimits() {
		t.Fatalf("limits not defaulted: %+v", cfg.Limits)
	}
}

func TestValidateClientTransportProductionRequiresTLS(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.SecurityMode = SecurityModeProduction
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}

	cfg.TLS.Enabled = true
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSCAFileRequired) {
		t.Fatalf("expected ErrTLSCAFileRequired, got %v", err)
	}

	cfg.TLS.CAFile = "/tmp/ca.pem"
	cfg.TLS.InsecureSkipVerify = true
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSInsecureSkipNotAllow) {
		t.Fatalf("expected ErrTLSInsecureSkipNotAllow, got %v", err)
	}

	cfg.TLS.InsecureSkipVerify = false
	if err := cfg.ValidateClientTransport(); err != nil {
		t.Fatalf("expected valid transport config, got %v", err)
	}
}

func TestValidateClientTransportMutualRequiresCertKey(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.TLS.Mutual = true
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSRequired) {
		t.Fatalf("expected ErrTLSRequired, got %v", err)
	}

	cfg.TLS.Enabled = true
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSCertFileRequired) {
		t.Fatalf("expected ErrTLSCertFileRequired, got %v", err)
	}

	cfg.TLS.CertFile = "/tmp/client.pem"
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrTLSKeyFileRequired) {
		t.Fatalf("expected ErrTLSKeyFileRequired, got %v", err)
	}

	cfg.TLS.KeyFile = "/tmp/client.key"
	if err := cfg.ValidateClientTransport(); err != nil {
		t.Fatalf("expected valid transport config, got %v", err)
	}

	cfg.SecurityMode = "staging"
	if err := cfg.ValidateClientTransport(); !errors.Is(err, ErrInvalidSecurityMode) {
		t.Fatalf("expected ErrInvalidSecurityMode, got %v", err)
	}
}

func TestPendingOrdersLifecycle(t *testing.T) {
	testlog.Start(t)
	o := NewPendingOrders()
	now := time.Unix(1700000000, 0)
	o.Track(PendingOrder{ClOrdID: "2-1", MsgType: "D", SeqNum: 2, SentAt: now})
	o.Track(PendingOrder{ClOrdID: "1-1", MsgType: "D", SeqNum: 1, SentAt: now})
	o.Track(PendingOrder{ClOrdID: "1-1", MsgType: "D", SeqNum: 3, SentAt: now})
	o.Track(PendingOrder{ClOrdID: "  "})

	if o.Len() != 2 {
		t.Fatalf("unexpected len=%d", o.Len())
	}
	item, ok := o.Get("1-1")
	if !ok || item.Attempts != 2 || item.SeqNum != 3 {
		t.Fatalf("unexpected resend tracking: %+v ok=%v", item, ok)
	}
	list := o.List()
	if list[0].ClOrdID != "2-1" || list[1].ClOrdID != "1-1" {
		t.Fatalf("unexpected order: %+v", list)
	}

	item, ok = o.Ack("2-1", "0", now.Add(time.Second))
	if !ok || item.LastStatus != "0" {
		t.Fatalf("unexpected partial ack: %+v ok=%v", item, ok)
	}
	if _, ok := o.Get("2-1"); !ok {
		t.Fatalf("new status should keep order pending")
	}
	if _, ok := o.Ack("2-1", "2", now.Add(2*time.Second)); !ok {
		t.Fatalf("expected terminal ack to match")
	}
	if _, ok := o.Get("2-1"); ok {
		t.Fatalf("filled order still pending")
	}
	if _, ok := o.Ack("missing", "2", now); ok {
		t.Fatalf("unknown clordid acked")
	}
	o.Remove("1-1")
	if o.Len() != 0 {
		t.Fatalf("expected empty, len=%d", o.Len())
	}
}

func TestTrafficLogAppends(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "traffic.log")
	tl, err := OpenTrafficLog(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := tl.Outbound([]byte("8=FIX.4.2\x0135=A\x01")); err != nil {
		t.Fatalf("outbound: %v", err)
	}
	if err := tl.Inbound([]byte("8=FIX.4.2\x0135=0\x01")); err != nil {
		t.Fatalf("inbound: %v", err)
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected lines: %q", lines)
	}
	if !strings.HasPrefix(lines[0], "client sent >> session: 8=FIX.4.2") {
		t.Fatalf("unexpected outbound line: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "counterparty sent >> client: 8=FIX.4.2") {
		t.Fatalf("unexpected inbound line: %q", lines[1])
	}

	var nilLog *TrafficLog
	if err := nilLog.Outbound([]byte("x")); err != nil {
		t.Fatalf("nil log should discard: %v", err)
	}
}

// venue is the counterparty end of a net.Pipe. handle returns the replies
// for each inbound message.
type venue struct {
	t      *testing.T
	conn   net.Conn
	seq    int
	handle func(v *venue, in *protocol.Message) []*protocol.Message
	done   chan struct{}
}

func venueOptions() protocol.Options {
	opts := protocol.DefaultOptions()
	opts.OrderIDs = protocol.NewOrderIDSource(900)
	return opts
}

func (v *venue) serve() {
	defer close(v.done)
	r := bufio.NewReader(v.conn)
	for {
		f, err := frame.ReadFrame(r, frame.DefaultLimits())
		if err != nil {
			return
		}
		in, err := protocol.Parse(f.Raw, nil, venueOptions())
		if err != nil {
			v.t.Errorf("venue parse: %v", err)
			return
		}
		for _, out := range v.handle(v, in) {
			out.SetDelimiter(tagvalue.DefaultDelimiter)
			raw, err := out.Bytes()
			if err != nil {
				v.t.Errorf("venue build: %v", err)
				return
			}
			if _, err := v.conn.Write(raw); err != nil {
				return
			}
		}
	}
}

// reply builds a venue message of kind k with the venue's next sequence.
func (v *venue) reply(k schema.Kind, reset protocol.ResetFields, extra ...tagvalue.Field) *protocol.Message {
	v.seq++
	g := group.FromFields(
		tagvalue.F(schema.TagSenderCompID, "VENUE"),
		tagvalue.F(schema.TagTargetCompID, "CLIENT"),
		tagvalue.Field{Tag: schema.TagSeqNum, Value: tagvalue.Itoa(v.seq)},
	)
	for _, f := range extra {
		g.SetField(f.Tag, f.Value)
	}
	opts := venueOptions()
	opts.Reset = reset
	m, err := protocol.NewKind(k, g, opts)
	if err != nil {
		v.t.Fatalf("venue %s: %v", k.Name, err)
	}
	return m
}

func (v *venue) execReport(clOrdID []byte, status string) *protocol.Message {
	return v.reply(schema.ExecutionReport,
		protocol.ResetFields{SendingTime: true, BodyLength: true, CheckSum: true},
		tagvalue.Field{Tag: schema.TagClOrdID, Value: clOrdID},
		tagvalue.F(schema.TagSide, "1"),
		tagvalue.F(schema.TagTransactTime, "20240102-03:04:05.678"),
		tagvalue.F(schema.TagOrdType, "1"),
		tagvalue.F(schema.TagOrderQty, "100"),
		tagvalue.F(schema.TagOrdStatus, status),
		tagvalue.F(schema.TagExecType, status),
		tagvalue.F(schema.TagOrderID, "VENUE-1"),
	)
}

func newPipeClient(t *testing.T, handle func(v *venue, in *protocol.Message) []*protocol.Message) (*Client, *venue) {
	t.Helper()
	return newPipeClientWith(t, handle, nil, nil)
}

// newPipeClientWith wraps the venue end in TLS when serverTLS is set and
// lets tweak adjust the client config.
func newPipeClientWith(t *testing.T, handle func(v *venue, in *protocol.Message) []*protocol.Message, serverTLS *tls.Config, tweak func(*Config)) (*Client, *venue) {
	t.Helper()
	clientEnd, venueEnd := net.Pipe()
	var venueConn net.Conn = venueEnd
	if serverTLS != nil {
		venueConn = tls.Server(venueEnd, serverTLS)
	}
	v := &venue{t: t, conn: venueConn, handle: handle, done: make(chan struct{})}
	go v.serve()

	cfg := DefaultConfig()
	cfg.Address = "venue.test:9878"
	cfg.SenderCompID = "CLIENT"
	cfg.TargetCompID = "VENUE"
	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	if tweak != nil {
		tweak(&cfg)
	}
	dialed := false
	c, err := NewClient("pipe", cfg, WithDialer(func(ctx context.Context, network, address string) (net.Conn, error) {
		if dialed {
			return nil, errors.New("pipe already used")
		}
		dialed = true
		return clientEnd, nil
	}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Shutdown()
		_ = venueEnd.Close()
		<-v.done
	})
	return c, v
}

func TestClientLogonOrderLogout(t *testing.T) {
	testlog.Start(t)
	c, _ := newPipeClient(t, func(v *venue, in *protocol.Message) []*protocol.Message {
		switch string(in.MsgType()) {
		case schema.MsgTypeLogon:
			return []*protocol.Message{v.reply(schema.TestRequest, protocol.ResetAll(), tagvalue.F(schema.TagTestReqID, "PING"))}
		case schema.MsgTypeHeartbeat:
			if id, _ := in.Field(schema.TagTestReqID); string(id) != "PING" {
				v.t.Errorf("heartbeat test req id=%q", id)
			}
			return []*protocol.Message{v.reply(schema.Logon, protocol.ResetAll())}
		case schema.MsgTypeNewOrderSingle:
			return []*protocol.Message{
				v.reply(schema.Heartbeat, protocol.ResetAll()),
				v.execReport(in.ClOrdID(), "2"),
			}
		case schema.MsgTypeLogout:
			return []*protocol.Message{
				v.execReport([]byte("other"), "0"),
				v.reply(schema.Logout, protocol.ResetAll()),
			}
		}
		return nil
	})
	ctx := context.Background()

	if _, err := c.NextSeq(false); !errors.Is(err, ErrNotLoggedOn) {
		t.Fatalf("expected ErrNotLoggedOn, got %v", err)
	}
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Logon(ctx); err != nil {
		t.Fatalf("logon: %v", err)
	}
	st := c.Status()
	if !st.LoggedOn || !st.Connected || st.NextSeq != 3 {
		t.Fatalf("unexpected status after logon: %+v", st)
	}

	order, err := c.NewMessage(schema.NewOrderSingle, []tagvalue.Field{
		tagvalue.F(schema.TagSide, "1"),
		tagvalue.F(schema.TagOrdType, "1"),
		tagvalue.F(schema.TagOrderQty, "100"),
		tagvalue.F(schema.TagSymbol, "AAPL"),
	}, true)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	if got, _ := order.SeqNum(); got != 3 {
		t.Fatalf("order seq=%d", got)
	}
	if err := c.Send(ctx, order); err != nil {
		t.Fatalf("send order: %v", err)
	}
	if c.Pending().Len() != 1 {
		t.Fatalf("order not tracked")
	}
	ack, err := c.RecvLinked(ctx, schema.TagClOrdID, order.ClOrdID(), 0)
	if err != nil {
		t.Fatalf("recv linked: %v", err)
	}
	if string(ack.MsgType()) != schema.MsgTypeExecutionReport || string(ack.OrderID()) != "VENUE-1" {
		t.Fatalf("unexpected ack: %s", ack)
	}
	if c.Pending().Len() != 0 {
		t.Fatalf("filled order still pending: %+v", c.Pending().List())
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	st = c.Status()
	if st.LoggedOn || st.Sent != 4 || st.Received != 6 {
		t.Fatalf("unexpected status after logout: %+v", st)
	}
}

func TestClientLogonRejectsResendRequest(t *testing.T) {
	testlog.Start(t)
	resend := schema.Kind{Name: "resend-request", MsgType: schema.MsgTypeResendRequest}
	c, _ := newPipeClient(t, func(v *venue, in *protocol.Message) []*protocol.Message {
		return []*protocol.Message{v.reply(resend, protocol.ResetAll())}
	})
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	err := c.Logon(ctx)
	var unexpected *UnexpectedMessageError
	if !errors.As(err, &unexpected) || unexpected.Reason != "seqnum is off" {
		t.Fatalf("expected seqnum error, got %v", err)
	}
}

func TestClientRecvLinkedTimeout(t *testing.T) {
	testlog.Start(t)
	c, _ := newPipeClient(t, func(v *venue, in *protocol.Message) []*protocol.Message {
		if string(in.MsgType()) == schema.MsgTypeLogon {
			return []*protocol.Message{v.reply(schema.Logon, protocol.ResetAll())}
		}
		return nil
	})
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Logon(ctx); err != nil {
		t.Fatalf("logon: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := c.RecvLinked(waitCtx, schema.TagClOrdID, []byte("nope"), 0); !errors.Is(err, ErrAckTimeout) {
		t.Fatalf("expected ErrAckTimeout, got %v", err)
	}
}

func TestClientNotConnected(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.Address = "venue.test:9878"
	cfg.SenderCompID = "CLIENT"
	cfg.TargetCompID = "VENUE"
	c, err := NewClient("", cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.Name() != "default" {
		t.Fatalf("unexpected name %q", c.Name())
	}
	if _, err := c.Recv(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close idle client: %v", err)
	}
	if err := c.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestClientConnectGivesUpAfterMaxAttempts(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.Address = "venue.test:9878"
	cfg.SenderCompID = "CLIENT"
	cfg.TargetCompID = "VENUE"
	cfg.MaxConnectAttempts = 3
	cfg.Backoff = BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	dialErr := errors.New("refused")
	calls := 0
	c, err := NewClient("retry", cfg, WithDialer(func(ctx context.Context, network, address string) (net.Conn, error) {
		calls++
		return nil, dialErr
	}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, dialErr) {
		t.Fatalf("expected dial error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("unexpected dial attempts=%d", calls)
	}
}

func logonOnly(v *venue, in *protocol.Message) []*protocol.Message {
	if string(in.MsgType()) == schema.MsgTypeLogon {
		return []*protocol.Message{v.reply(schema.Logon, protocol.ResetAll())}
	}
	return nil
}

func TestClientLogonOverTLS(t *testing.T) {
	testlog.Start(t)
	ca := tlstest.NewAuthority(t, "fixctl-test-ca")
	c, _ := newPipeClientWith(t, logonOnly, ca.ServerConfig(t, false, "venue.test"), func(cfg *Config) {
		cfg.SecurityMode = SecurityModeProduction
		cfg.TLS = TLSConfig{Enabled: true, CAFile: ca.CAFile()}
	})
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("tls connect: %v", err)
	}
	if err := c.Logon(ctx); err != nil {
		t.Fatalf("logon over tls: %v", err)
	}
}

func TestClientLogonOverMutualTLS(t *testing.T) {
	testlog.Start(t)
	ca := tlstest.NewAuthority(t, "fixctl-test-ca")
	certFile, keyFile := ca.IssueClient(t, "CLIENT")
	c, _ := newPipeClientWith(t, logonOnly, ca.ServerConfig(t, true, "venue.test"), func(cfg *Config) {
		cfg.TLS = TLSConfig{Enabled: true, Mutual: true, CAFile: ca.CAFile(), CertFile: certFile, KeyFile: keyFile}
	})
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("mtls connect: %v", err)
	}
	if err := c.Logon(ctx); err != nil {
		t.Fatalf("logon over mtls: %v", err)
	}
}

func TestClientRejectsUntrustedVenue(t *testing.T) {
	testlog.Start(t)
	venueCA := tlstest.NewAuthority(t, "venue-ca")
	otherCA := tlstest.NewAuthority(t, "other-ca")
	c, _ := newPipeClientWith(t, logonOnly, venueCA.ServerConfig(t, false, "venue.test"), func(cfg *Config) {
		cfg.TLS = TLSConfig{Enabled: true, CAFile: otherCA.CAFile()}
		cfg.MaxConnectAttempts = 1
		cfg.ConnectTimeout = 500 * time.Millisecond
	})
	if err := c.Connect(context.Background()); err == nil {
		t.Fatalf("expected handshake failure against untrusted venue")
	}
}
