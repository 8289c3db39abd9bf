package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lherron/shamela/internal/cli"
)

func main() {
	addr := flag.String("addr", os.Getenv("SHAMELAD_ADDR"), "Listen address (default 127.0.0.1:7272)")
	unixPath := flag.String("unix", os.Getenv("SHAMELAD_UNIX"), "Listen on unix socket path")
	token := flag.String("token", os.Getenv("SHAMELAD_TOKEN"), "Shared token for local auth")
	flag.Parse()

	opts := cli.DaemonOptions{
		Addr:  *addr,
		Unix:  *unixPath,
		Token: *token,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ServeDaemon(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
