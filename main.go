// File: main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arenabit/rumble/actor"
	"github.com/arenabit/rumble/game"
	"github.com/arenabit/rumble/metrics"
	"github.com/arenabit/rumble/server"
	"github.com/arenabit/rumble/utils"
)

func main() {
	cfg, err := utils.LoadFromEnv()
	if err != nil {
		fmt.Printf("ERROR: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	var store metrics.Store = metrics.NoopStore{}
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		mongoStore, err := metrics.NewMongoStore(ctx, cfg.MongoURI, "rumble")
		cancel()
		if err != nil {
			fmt.Printf("WARN: MongoDB unavailable, continuing without persistence: %v\n", err)
		} else {
			store = mongoStore
		}
	} else {
		fmt.Println("No MONGO_URI configured, metrics persistence disabled")
	}

	aggregator := metrics.New(store)
	aggregator.Start()

	engine := actor.NewEngine()
	matchmakerPID := engine.Spawn(actor.NewProps(game.NewMatchmakerProducer(cfg, aggregator)))
	if matchmakerPID == nil {
		fmt.Println("ERROR: failed to spawn matchmaker")
		os.Exit(1)
	}

	srv := server.New(cfg, engine, matchmakerPID, aggregator)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("ERROR: server failed: %v\n", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		fmt.Printf("Received %v, shutting down...\n", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("WARN: HTTP shutdown: %v\n", err)
	}

	engine.Shutdown(cfg.ShutdownTimeout)

	if err := aggregator.Flush(shutdownCtx); err != nil {
		fmt.Printf("WARN: metrics flush: %v\n", err)
	}
	aggregator.Stop()
	if err := store.Close(shutdownCtx); err != nil {
		fmt.Printf("WARN: store close: %v\n", err)
	}

	fmt.Println("Shutdown complete")
}
