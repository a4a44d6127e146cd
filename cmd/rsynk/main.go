// Tool rsynk is a read-only, sender-only rsync server. It serves the file
// list of a configured directory to stock rsync clients connecting via SSH:
//
//	rsync -e 'ssh -p 22873' --list-only -r host:dir/
//
// Started by sshd with --server as its first argument, it serves a single
// session over stdin/stdout instead:
//
//	rsync --rsync-path=rsynk --list-only -r host:dir/
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/boob-sbcm/rsynk/internal/maincmd"
	"github.com/boob-sbcm/rsynk/internal/rsyncos"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	osenv := &rsyncos.Env{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if err := maincmd.Main(ctx, osenv, os.Args, nil); err != nil {
		log.Fatal(err)
	}
}
