package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mlowell/blunderlab/internal/storage"
	"github.com/mlowell/blunderlab/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyzeCommand()
	case "gallery":
		runGalleryCommand()
	case "runs":
		runRunsCommand()
	case "serve":
		runServeCommand()
	case "token":
		runTokenCommand()
	case "version":
		fmt.Printf("blunderlab %s\n", version.GetVersion())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("blunderlab - Lichess Error Gallery + Trainer")
	fmt.Println("============================================")
	fmt.Println()
	fmt.Println("Usage: blunderlab <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  analyze    - Fetch a player's games, grade every move and render the gallery")
	fmt.Println("  gallery    - Re-render the gallery from a stored run")
	fmt.Println("  runs       - List stored analysis runs")
	fmt.Println("  serve      - Serve the gallery over HTTP, rebuilding on new runs")
	fmt.Println("  token      - Manage the stored Lichess API token (set/show/clear)")
	fmt.Println("  version    - Print the build version")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  blunderlab analyze -user magnus -max-games 20 -perf blitz,rapid")
	fmt.Println("  blunderlab analyze -user magnus -since 2026-01-01 -side white -open")
	fmt.Println("  blunderlab gallery -out out")
	fmt.Println("  blunderlab serve -addr :8080 -open")
	fmt.Println("  blunderlab token set lip_xxxxxxxxxxxx")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  LICHESS_TOKEN          - API token used when no -token flag is given")
	fmt.Println("  STOCKFISH_PATH         - UCI engine executable")
	fmt.Println("  BLUNDERLAB_DB_PATH     - Run database location")
	fmt.Println("  BLUNDERLAB_PASSPHRASE  - Passphrase sealing the stored token")
	fmt.Println()
}

// getDBPath returns the database path from environment variable or default location.
func getDBPath() string {
	dbPath := os.Getenv("BLUNDERLAB_DB_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Error getting home directory: %v", err)
		}
		dbPath = filepath.Join(home, ".blunderlab", "blunderlab.db")
	}
	return dbPath
}

// openDatabase opens the run database, migrating it to the current
// schema. Callers own the returned handle.
func openDatabase(path string) *storage.DB {
	if path == "" {
		path = getDBPath()
	}
	cfg := storage.DefaultConfig(path)
	cfg.AutoMigrate = true

	db, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return db
}

// signalContext returns a context canceled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	return ctx, cancel
}
