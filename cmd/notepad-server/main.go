// Command notepad-server runs the authoritative paste store (§4.4). It
// needs no arguments: board credentials come from the environment, and the
// one flag, -poll-interval, is optional.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/summitto/notepad/board"
	"github.com/summitto/notepad/internal/config"
	"github.com/summitto/notepad/server"
)

func main() {
	pollInterval := flag.Duration("poll-interval", config.PendingRequestRetryPeriod, "how often to list and drain the board")
	flag.Parse()

	creds, err := config.LoadBoardCredentials()
	if err != nil {
		log.Fatalln("notepad-server: missing board credentials:", err)
	}

	b := newBoard(creds)

	engine := server.NewEngine(b)
	engine.KeyLifetime = config.SessionKeyLifetime

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("notepad-server: starting, backend =", creds.Backend, "poll interval =", *pollInterval)
	engine.RunForever(ctx, *pollInterval)
	log.Println("notepad-server: shutting down")
}

func newBoard(creds config.BoardCredentials) board.Board {
	switch creds.Backend {
	case config.BackendGist:
		return board.NewGistBoard(creds.BaseURL, creds.GistID, creds.Token)
	default:
		return board.NewPasteBoard(creds.BaseURL, creds.Token)
	}
}
