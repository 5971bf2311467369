// Command ragrouter ingests a small web corpus into a vector store and answers
// queries by routing them to that store or to Wikipedia.
//
// Usage:
//
//	ragrouter --query "What is chain-of-thought prompting?"
//	ragrouter ingest --file notes.txt
//	ragrouter serve --addr :8080
//	ragrouter ui
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/smallnest/ragrouter/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		log.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
