package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/mapviewer/cmd"
	"github.com/spaghettifunk/mapviewer/engine/core"
)

// Container decoders register themselves in init. Link a decoder package
// here with a blank import to make its set available to pipeline.decoders.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	// cancel the running load or frame loop on the first signal
	go func() {
		sig := <-sigCh
		core.LogInfo("received %s, shutting down", sig)
		cancel()
	}()

	cmd.Execute(ctx)
}
