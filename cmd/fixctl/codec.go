package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/fixctl/internal/config"
	"github.com/danmuck/fixctl/internal/protocol"
	"github.com/danmuck/fixctl/internal/protocol/group"
	"github.com/danmuck/fixctl/internal/protocol/schema"
	"github.com/danmuck/fixctl/internal/protocol/session"
	"github.com/danmuck/fixctl/internal/protocol/tagvalue"
	"github.com/danmuck/fixctl/internal/render"
)

// registry returns the built-in kinds, plus config kinds when path is set.
func registry(path string) (*schema.Registry, error) {
	if path == "" {
		return schema.NewRegistry(schema.Builtins()...), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg.Registry()
}

// detectDelimiter picks SOH when present, else the caret form.
func detectDelimiter(line []byte) byte {
	if bytes.IndexByte(line, tagvalue.DefaultDelimiter) >= 0 {
		return tagvalue.DefaultDelimiter
	}
	return tagvalue.CaretDelimiter
}

// readMessages returns one message per non-empty line. Lines starting with
// '#' are skipped.
func readMessages(r io.Reader) ([][]byte, error) {
	var out [][]byte
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		out = append(out, bytes.Clone(line))
	}
	return out, sc.Err()
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func runParse(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	in := fs.String("in", "-", "input file, one message per line (- for stdin)")
	format := fs.String("format", "tree", "output: tree | caret | filtered | yaml")
	cfgPath := fs.String("config", "", "fixctl config with extra kinds")
	noColor := fs.Bool("nocolor", false, "disable colored tree output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reg, err := registry(*cfgPath)
	if err != nil {
		return err
	}
	r, closeFn, err := openInput(*in, stdin)
	if err != nil {
		return err
	}
	defer closeFn()
	lines, err := readMessages(r)
	if err != nil {
		return err
	}
	colors := render.NewColors()
	if *noColor {
		colors = render.PlainColors()
	}
	for i, raw := range lines {
		if i > 0 {
			fmt.Fprintln(stdout, "---")
		}
		if err := printParsed(stdout, raw, reg, *format, colors); err != nil {
			return fmt.Errorf("message %d: %w", i+1, err)
		}
	}
	return nil
}

func printParsed(w io.Writer, raw []byte, reg *schema.Registry, format string, colors *render.Colors) error {
	opts := protocol.DefaultOptions()
	opts.Delimiter = detectDelimiter(raw)
	// Semantic problems are reported on the summary line, not as errors.
	opts.ValidateSemantics = false
	m, err := protocol.ParseKnown(raw, reg, opts)
	if errors.Is(err, protocol.ErrNoMsgType) {
		m, err = protocol.Parse(raw, nil, opts)
	}
	if err != nil {
		return err
	}
	kindName := "unknown"
	if k, ok := m.Kind(); ok {
		kindName = k.Name
	}
	switch strings.ToLower(format) {
	case "tree":
		if err := render.Tree(w, m.Root(), colors); err != nil {
			return err
		}
	case "caret":
		fmt.Fprintln(w, render.Caret(raw, opts.Delimiter))
	case "filtered":
		fmt.Fprintln(w, render.Filtered(raw, opts.Delimiter, session.DefaultFilterTags()))
	case "yaml":
		out, err := render.YAML(m.Root())
		if err != nil {
			return err
		}
		_, _ = w.Write(out)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	fmt.Fprintf(w, "kind=%s checksum=%t body_length=%t semantics=%t\n",
		kindName, m.IsValidChecksum(), m.IsValidBodyLength(), m.IsValidSemantics())
	return nil
}

func runBuild(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	kindName := fs.String("kind", "", "kind name or msg type (defaults to the 35 field)")
	cfgPath := fs.String("config", "", "fixctl config with extra kinds")
	soh := fs.Bool("soh", false, "write SOH-delimited bytes instead of the caret form")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reg, err := registry(*cfgPath)
	if err != nil {
		return err
	}
	fields, err := tagvalue.Decode([]byte(strings.Join(fs.Args(), "^")), tagvalue.CaretDelimiter)
	if err != nil {
		return err
	}
	opts := protocol.DefaultOptions()
	if !*soh {
		opts.Delimiter = tagvalue.CaretDelimiter
	}
	m, err := buildMessage(reg, *kindName, fields, opts)
	if err != nil {
		return err
	}
	out, err := m.Bytes()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", out)
	return err
}

// buildMessage constructs the kind named by name, or by the 35 field when
// name is empty.
func buildMessage(reg *schema.Registry, name string, fields []tagvalue.Field, opts protocol.Options) (*protocol.Message, error) {
	g := group.FromFields(fields...)
	if name == "" {
		msgType, ok := g.Field(schema.TagMsgType)
		if !ok {
			return nil, protocol.ErrNoMsgType
		}
		name = string(msgType)
	}
	k, err := protocol.KindOf(reg, name)
	if err != nil {
		return nil, err
	}
	g.Remove(schema.TagMsgType)
	return protocol.NewKind(k, g, opts)
}

func runKinds(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("kinds", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "fixctl config with extra kinds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	reg, err := registry(*cfgPath)
	if err != nil {
		return err
	}
	for _, k := range reg.All() {
		line := fmt.Sprintf("%-4s %-22s required=%v", k.MsgType, k.Name, k.Required)
		if k.Structure != nil {
			line += " grouped"
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}
