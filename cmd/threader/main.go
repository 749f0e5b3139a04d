package main

import (
	"log/slog"
	"os"

	"github.com/aryankumar/threader/internal/cli"
	"github.com/aryankumar/threader/internal/util"
)

func main() {
	// first SIGINT/SIGTERM cancels running jobs, the second exits
	ctx := util.SetupSignalHandler()

	if err := cli.Execute(ctx); err != nil {
		slog.Error("command failed", "error", util.FriendlyError(err))
		os.Exit(1)
	}
}
