package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mlowell/blunderlab/internal/config"
	"github.com/mlowell/blunderlab/internal/gallery"
	"github.com/mlowell/blunderlab/internal/storage"
)

func runServeCommand() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	addr := fs.String("addr", ":8080", "Listen address")
	out := fs.String("out", cfg.Output.Dir, "Gallery directory to serve")
	dbPath := fs.String("db", "", "Database path (default: $BLUNDERLAB_DB_PATH or ~/.blunderlab/blunderlab.db)")
	open := fs.Bool("open", false, "Open the gallery in the browser")

	if err := fs.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing serve flags: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	db := openDatabase(*dbPath)
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()
	repo := storage.NewRunRepository(db)

	g := gallery.New(*out)
	rebuild := func() error {
		id, err := repo.LatestRunID(ctx)
		if errors.Is(err, storage.ErrRunNotFound) {
			_, err = g.RenderAll(nil)
			return err
		}
		if err != nil {
			return err
		}
		_, reports, err := repo.GetRun(ctx, id)
		if err != nil {
			return err
		}
		_, err = g.RenderAll(reports)
		return err
	}

	if err := rebuild(); err != nil {
		log.Fatalf("Failed to render gallery: %v", err)
	}

	watchPath := *dbPath
	if watchPath == "" {
		watchPath = getDBPath()
	}

	srv := gallery.NewServer(gallery.ServeConfig{
		Addr:        *addr,
		Dir:         *out,
		WatchPath:   watchPath,
		Rebuild:     rebuild,
		OpenBrowser: *open,
	})
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	fmt.Println("Serving gallery. Press Ctrl+C to stop.")

	if err := srv.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Watch stopped: %v", err)
	}

	fmt.Println()
	fmt.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error stopping server: %v", err)
	}
}
