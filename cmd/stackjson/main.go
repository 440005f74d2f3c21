package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/lk2023060901/stackjson-go/pkg/log"
)

const usage = `usage: stackjson <command> [flags]

commands:
  fmt     re-encode a stream of JSON documents, one compact document per line
  bench   compare stackjson with sonic and json-iterator on generated documents
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := maxprocs.Set(maxprocs.Logger(log.S().Debugf)); err != nil {
		log.S().Warnf("set GOMAXPROCS failed: %v", err)
	}

	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	_ = log.Sync()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "fmt":
		err = runFmt(ctx, args[1:], stdin, stdout, stderr)
	case "bench":
		err = runBench(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "stackjson %s: %v\n", args[0], err)
		return 1
	}
	return 0
}
