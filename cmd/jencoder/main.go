package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/boogy/jencoder/internal/cli"
	"github.com/boogy/jencoder/pkg/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.Execute(ctx)
	stop()
	if err == nil {
		return
	}

	if code := types.ErrorKind(err); code != types.CodeInternal {
		fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", code, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
