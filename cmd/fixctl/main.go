package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/fixctl/internal/logging"
)

const usage = `usage: fixctl <command> [flags]

commands:
  parse    print a message as a tree, caret line, filtered line or YAML
  build    construct a message kind from tag=value fields
  session  connect, log on, send messages, await acks and log out
  kinds    list the message kinds known to the catalog
`

func main() {
	logging.ConfigureRuntime()
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fatalf("%v", err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("missing command")
	}
	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "parse":
		return runParse(rest, stdin, stdout)
	case "build":
		return runBuild(rest, stdout)
	case "session":
		return runSession(rest, stdout)
	case "kinds":
		return runKinds(rest, stdout)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q (supported: parse, build, session, kinds)", cmd)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fixctl: "+format+"\n", args...)
	os.Exit(1)
}
