// Command notepad-client is a minimal text-mode driver for the client
// protocol engine. The graphical front-end is explicitly out of scope
// (§1); this gives a way to exercise New/Get/Mut/Remove from a terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/summitto/notepad/board"
	notepadclient "github.com/summitto/notepad/client"
	"github.com/summitto/notepad/internal/config"
	"github.com/summitto/notepad/protocol"
)

func main() {
	action := flag.String("action", "", "one of: get, new, mut, remove, regenerate")
	name := flag.String("name", "", "paste name")
	content := flag.String("content", "", "paste content (new/mut only)")
	flag.Parse()

	creds, err := config.LoadBoardCredentials()
	if err != nil {
		log.Fatalln("notepad-client: missing board credentials:", err)
	}
	b := newBoard(creds)

	priv, err := notepadclient.LoadOrGenerateKey(config.RSAKeyPath())
	if err != nil {
		log.Fatalln("notepad-client: loading RSA key:", err)
	}
	pub, err := protocol.PublicKeyPEM(&priv.PublicKey)
	if err != nil {
		log.Fatalln("notepad-client: deriving public key:", err)
	}

	c := notepadclient.New(b, priv, pub)
	c.RetryPeriod = config.PendingRequestRetryPeriod
	c.PendingGetTimeout = config.PendingGetTimeout

	ctx := context.Background()

	if *action == "regenerate" {
		newPriv, err := protocol.GenerateRSAKeyPair()
		if err != nil {
			log.Fatalln("notepad-client: generating key:", err)
		}
		newPub, err := protocol.PublicKeyPEM(&newPriv.PublicKey)
		if err != nil {
			log.Fatalln("notepad-client: deriving public key:", err)
		}
		if err := notepadclient.SaveKey(config.RSAKeyPath(), newPriv); err != nil {
			log.Fatalln("notepad-client: saving key:", err)
		}
		c.Regenerate(newPriv, newPub)
		log.Println("notepad-client: regenerated RSA identity")
	}

	waitForSession(ctx, c)

	switch *action {
	case "new":
		must(c.New(ctx, *name, *content))
	case "mut":
		must(c.Mut(ctx, *name, *content))
	case "remove":
		must(c.Remove(ctx, *name))
	case "get":
		must(c.Get(ctx, *name))
		waitForGet(ctx, c)
	case "regenerate":
		// handshake already driven above
	default:
		fmt.Fprintln(os.Stderr, "usage: notepad-client -action={get,new,mut,remove,regenerate} -name=... [-content=...]")
		os.Exit(1)
	}
}

func waitForSession(ctx context.Context, c *notepadclient.Client) {
	for !c.HasSession() {
		must(c.Tick(ctx))
		if !c.HasSession() {
			time.Sleep(c.RetryPeriod)
		}
	}
}

func waitForGet(ctx context.Context, c *notepadclient.Client) {
	for c.IsPendingGet() {
		must(c.Tick(ctx))
		if c.IsPendingGet() {
			time.Sleep(c.RetryPeriod)
		}
	}
	name, content, ok, err := c.ConsumeResult()
	must(err)
	if !ok {
		fmt.Println("(no result: timed out or not found)")
		return
	}
	fmt.Printf("%s=%s\n", name, content)
}

func must(err error) {
	if err != nil {
		log.Fatalln("notepad-client:", err)
	}
}

func newBoard(creds config.BoardCredentials) board.Board {
	switch creds.Backend {
	case config.BackendGist:
		return board.NewGistBoard(creds.BaseURL, creds.GistID, creds.Token)
	default:
		return board.NewPasteBoard(creds.BaseURL, creds.Token)
	}
}
