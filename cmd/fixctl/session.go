package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/fixctl/internal/auth"
	"github.com/danmuck/fixctl/internal/config"
	"github.com/danmuck/fixctl/internal/protocol"
	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/session"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
	"github.com/danmuck/fixctl/internal/render"
	"github.com/danmuck/fixctl/internal/server"
	"github.com/rs/zerolog/log"
)

func runSession(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("session", flag.ContinueOnError)
	cfgPath := fs.String("config", "fixctl.toml", "fixctl config path")
	profile := fs.String("profile", "", "connection profile (default: \"default\" or the only one)")
	sendPath := fs.String("send", "", "file of caret-form messages to send after logon")
	await := fs.Duration("await", 5*time.Second, "wait this long for each order's linked ack (0 disables)")
	admin := fs.Bool("admin", false, "serve the admin HTTP surface while the session runs")
	hold := fs.Bool("hold", false, "stay logged on until interrupted, answering heartbeats")
	if err := fs.Parse(args); err != nil {
		return err
	}

	file, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	overrides, err := config.LoadOverrides(nil)
	if err != nil {
		return err
	}
	resolved, err := file.Resolve(*profile, overrides)
	if err != nil {
		return err
	}
	reg, err := file.Registry()
	if err != nil {
		return err
	}
	var outbound [][]byte
	if *sendPath != "" {
		f, err := os.Open(*sendPath)
		if err != nil {
			return err
		}
		outbound, err = readMessages(f)
		_ = f.Close()
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := session.NewClient(resolved.Name, resolved.Session, session.WithRegistry(reg))
	if err != nil {
		return err
	}
	defer func() { _ = client.Shutdown() }()

	if *admin {
		srv := server.New("fixctl-admin", resolved.AdminAddr, client, reg, resolved.CorsOrigins)
		if resolved.AdminToken != "" {
			srv.RequireToken(auth.StaticToken{Token: resolved.AdminToken})
		}
		go func() {
			if err := srv.Serve(ctx); err != nil {
				log.Error().Err(err).Msg("admin server stopped")
			}
		}()
	}

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.Logon(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "logged on to %s as %s\n", resolved.Session.Address, resolved.Session.SenderCompID)

	for i, raw := range outbound {
		if err := sendOne(ctx, client, reg, raw, *await, stdout); err != nil {
			return fmt.Errorf("message %d: %w", i+1, err)
		}
	}

	if *hold {
		holdSession(ctx, client)
	}

	logoutCtx, cancel := context.WithTimeout(context.Background(), resolved.Session.ReadTimeout)
	defer cancel()
	if err := client.Logout(logoutCtx); err != nil {
		return err
	}
	st := client.Status()
	fmt.Fprintf(stdout, "logged out: sent=%d received=%d pending=%d\n", st.Sent, st.Received, st.Pending)
	return nil
}

// sendOne builds a caret-form line as its kind on this session, sends it
// and, for orders, waits for the linked ack.
func sendOne(ctx context.Context, client *session.Client, reg *schema.Registry, raw []byte, await time.Duration, stdout io.Writer) error {
	fields, err := tagvalue.Decode(raw, detectDelimiter(raw))
	if err != nil {
		return err
	}
	var msgType string
	extra := make([]tagvalue.Field, 0, len(fields))
	for _, f := range fields {
		if f.Tag == schema.TagMsgType {
			msgType = string(f.Value)
			continue
		}
		extra = append(extra, f)
	}
	if msgType == "" {
		return protocol.ErrNoMsgType
	}
	k, err := protocol.KindOf(reg, msgType)
	if err != nil {
		return err
	}
	m, err := client.NewMessage(k, extra, true)
	if err != nil {
		return err
	}
	seq, _ := m.SeqNum()
	if err := client.Send(ctx, m); err != nil {
		return err
	}
	if await <= 0 || !isOrder(k.MsgType) {
		return nil
	}
	waitCtx, cancel := context.WithTimeout(ctx, await)
	defer cancel()
	ack, err := client.RecvLinked(waitCtx, schema.TagClOrdID, m.ClOrdID(), 0)
	if err != nil {
		return err
	}
	raw, err = ack.Bytes()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "seq %d ack: %s\n", seq, render.Filtered(raw, ack.Delimiter(), client.Config().FilterTags))
	return nil
}

func isOrder(msgType string) bool {
	switch msgType {
	case schema.MsgTypeNewOrderSingle, schema.MsgTypeOrderCancelReplace, schema.MsgTypeOrderCancel:
		return true
	}
	return false
}

// holdSession reads until ctx is done. Recv answers nothing itself, so test
// requests are handled here and idle reads send a heartbeat.
func holdSession(ctx context.Context, client *session.Client) {
	for ctx.Err() == nil {
		in, err := client.Recv(ctx)
		switch {
		case errors.Is(err, session.ErrNoMessage):
			if err := client.SendHeartbeat(ctx, nil); err != nil {
				log.Warn().Err(err).Msg("heartbeat failed")
				return
			}
			continue
		case err != nil:
			log.Warn().Err(err).Msg("session read failed")
			return
		}
		if string(in.MsgType()) == schema.MsgTypeTestRequest {
			id, _ := in.Field(schema.TagTestReqID)
			if err := client.SendHeartbeat(ctx, id); err != nil {
				log.Warn().Err(err).Msg("heartbeat failed")
				return
			}
		}
	}
}
