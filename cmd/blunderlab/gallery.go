package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mlowell/blunderlab/internal/config"
	"github.com/mlowell/blunderlab/internal/gallery"
	"github.com/mlowell/blunderlab/internal/storage"
)

func runGalleryCommand() {
	fs := flag.NewFlagSet("gallery", flag.ExitOnError)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	runID := fs.String("run", "", "Run id to render (default: most recent run)")
	out := fs.String("out", cfg.Output.Dir, "Output directory for the gallery")
	dbPath := fs.String("db", "", "Database path (default: $BLUNDERLAB_DB_PATH or ~/.blunderlab/blunderlab.db)")
	open := fs.Bool("open", false, "Open the gallery in the browser when done")

	if err := fs.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing gallery flags: %v\n", err)
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

	id := *runID
	if id == "" {
		id, err = repo.LatestRunID(ctx)
		if errors.Is(err, storage.ErrRunNotFound) {
			log.Fatalf("No stored runs to render. Run 'blunderlab analyze' first.")
		}
		if err != nil {
			log.Fatalf("Failed to find latest run: %v", err)
		}
	}

	run, reports, err := repo.GetRun(ctx, id)
	if err != nil {
		log.Fatalf("Failed to load run: %v", err)
	}

	path, err := gallery.New(*out).RenderAll(reports)
	if err != nil {
		log.Fatalf("Failed to render gallery: %v", err)
	}

	fmt.Printf("Wrote gallery: %s (%d games, %d flagged moves)\n",
		path, run.GamesAnalyzed, run.ErrorCount)

	if *open {
		if err := gallery.OpenInBrowser(path); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	}
}
