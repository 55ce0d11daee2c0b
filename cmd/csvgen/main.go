package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/kgchat/internal/util"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
)

// execute runs the command line and reports any failure, including flag
// and unknown command errors, through the logger.
func execute(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("csvgen failed", "err", err)
		return 1
	}
	return 0
}

func main() {
	initLogger()
	util.LoadEnv()
	initLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
