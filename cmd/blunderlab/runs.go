package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mlowell/blunderlab/internal/storage"
)

func runRunsCommand() {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", "", "Database path (default: $BLUNDERLAB_DB_PATH or ~/.blunderlab/blunderlab.db)")

	if err := fs.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing runs flags: %v\n", err)
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

	runs, err := storage.NewRunRepository(db).ListRuns(ctx)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet. Run 'blunderlab analyze' first.")
		return
	}

	fmt.Printf("%-36s  %-16s  %-16s  %5s  %6s  %5s\n",
		"ID", "USER", "WHEN", "GAMES", "FAILED", "MOVES")
	for _, run := range runs {
		fmt.Printf("%-36s  %-16s  %-16s  %5d  %6d  %5d\n",
			run.ID, run.Username, run.CreatedAt.Format("2006-01-02 15:04"),
			run.GamesAnalyzed, run.GamesFailed, run.ErrorCount)
	}
}
