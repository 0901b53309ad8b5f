// Command pokerd runs the authoritative poker server: one websocket listener
// demultiplexing connections to per-table Room Controllers. Table listing
// and creation over REST, wallet/auth identity, and escrow/chip-vault
// internals are out of scope (spec.md §1) — tables are configured once at
// startup from flags, and a connection's wallet identity is whatever the
// "wallet" query parameter names.
//
// Grounded on the teacher's cmd/pokersrv/main.go flag-driven bootstrap
// (flag parsing, sqlite open, logging backend, net.Listen), replacing its
// gRPC server construction with a gorilla/websocket http.Handler per
// spec.md §6's transport redesign.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/opencardroom/pokerd/pkg/config"
	"github.com/opencardroom/pokerd/pkg/escrow"
	"github.com/opencardroom/pokerd/pkg/persistence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	backend := slog.NewBackend(os.Stderr)
	log := backend.Logger("POKERD")
	if lvl, ok := slog.LevelFromString(cfg.DebugLevel); ok {
		log.SetLevel(lvl)
	}

	store, err := persistence.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open persistence: %w", err)
	}
	defer store.Close()

	// Escrow/chip-vault internals and wallet funding are out of scope
	// (spec.md §1); the in-memory reference client lazily faucets a large
	// balance to every wallet's first lock so local play isn't blocked on a
	// deposit flow this server doesn't implement.
	escClient := escrow.NewInMemoryFaucet(1_000_000)

	reg := newRegistry(escClient, store, log)

	demo := cfg.TableDefaults()
	demo.ID = "main"
	demo.DisplayName = "Main Table"
	demo.SmallBlind = 1
	demo.BigBlind = 2
	demo.MinBuyIn = 40
	demo.MaxBuyIn = 400
	demo.MaxSeats = 6
	demo.MinSeatsToPlay = 2
	demo.MentalPoker = true
	if _, err := reg.open(demo); err != nil {
		return fmt.Errorf("open demo table: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWS(reg, log, w, r)
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(sigCtx)
	group.Go(func() error {
		log.Infof("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		reg.stopAll()
		return srv.Close()
	})

	return group.Wait()
}

func serveWS(reg *registry, log slog.Logger, w http.ResponseWriter, r *http.Request) {
	tableID := r.URL.Query().Get("table")
	wallet := r.URL.Query().Get("wallet")
	if tableID == "" || wallet == "" {
		http.Error(w, "table and wallet query parameters are required", http.StatusBadRequest)
		return
	}

	rm, ok := reg.get(tableID)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown table %q", tableID), http.StatusNotFound)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade for %s: %v", wallet, err)
		return
	}
	conn := newWSConnection(wsConn)
	defer conn.close()

	// A previously-seated wallet reconnecting picks its seat back up;
	// a brand-new wallet will seat itself via an explicit table:join
	// message instead, so a Reconnect failure here is expected and benign.
	_ = rm.Reconnect(wallet, conn)

	for {
		env, err := conn.readEnvelope()
		if err != nil {
			_ = rm.Disconnect(wallet, conn)
			return
		}
		reply := dispatch(rm, wallet, conn, env)
		conn.sendReply(reply)
	}
}
