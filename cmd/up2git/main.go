package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/HuangJiaLian/Up2Git/internal/client/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Main(ctx, os.Args[1:], cli.Options{})
	stop()
	os.Exit(code)
}
