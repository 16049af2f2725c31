package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mlowell/blunderlab/internal/analysis"
	"github.com/mlowell/blunderlab/internal/config"
	"github.com/mlowell/blunderlab/internal/engine"
	"github.com/mlowell/blunderlab/internal/gallery"
	"github.com/mlowell/blunderlab/internal/lichess"
	"github.com/mlowell/blunderlab/internal/pipeline"
	"github.com/mlowell/blunderlab/internal/retrieve"
	"github.com/mlowell/blunderlab/internal/storage"
)

func runAnalyzeCommand() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	user := fs.String("user", "", "Lichess username to analyze (required)")
	token := fs.String("token", "", "Lichess API token (default: $LICHESS_TOKEN, then the stored token)")
	out := fs.String("out", cfg.Output.Dir, "Output directory for the gallery")
	maxGames := fs.Int("max-games", cfg.Lichess.MaxGames, "Maximum games to fetch")
	since := fs.String("since", "", "Only games on or after this date (YYYY-MM-DD)")
	until := fs.String("until", "", "Only games on or before this date (YYYY-MM-DD)")
	perf := fs.String("perf", cfg.Lichess.Perf, "Comma-separated speeds: bullet,blitz,rapid,classical,correspondence")
	side := fs.String("side", cfg.Lichess.Side, "Grade moves for white, black or both")
	depth := fs.Int("depth", cfg.Engine.Depth, "Engine search depth per query")
	threads := fs.Int("threads", cfg.Engine.Threads, "Engine threads")
	hashMB := fs.Int("hash-mb", cfg.Engine.HashMB, "Engine hash table size in MB")
	minCP := fs.Int("min-cp", cfg.Analysis.Inaccuracy, "Centipawn loss floor: inaccuracy threshold and report filter")
	mistake := fs.Int("mistake", cfg.Analysis.Mistake, "Centipawn loss lower bound for a mistake")
	blunder := fs.Int("blunder", cfg.Analysis.Blunder, "Centipawn loss lower bound for a blunder")
	enginePath := fs.String("engine", "", "UCI engine executable (default: config, then $STOCKFISH_PATH, then stockfish)")
	dbPath := fs.String("db", "", "Database path (default: $BLUNDERLAB_DB_PATH or ~/.blunderlab/blunderlab.db)")
	noStore := fs.Bool("no-store", false, "Skip persisting the run to the database")
	open := fs.Bool("open", false, "Open the gallery in the browser when done")

	if err := fs.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing analyze flags: %v\n", err)
		os.Exit(1)
	}

	if *user == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		fs.Usage()
		os.Exit(1)
	}

	visited := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { visited[f.Name] = true })

	cfg.Lichess.MaxGames = *maxGames
	cfg.Lichess.Perf = *perf
	cfg.Lichess.Side = strings.ToLower(*side)
	cfg.Engine.Depth = *depth
	cfg.Engine.Threads = *threads
	cfg.Engine.HashMB = *hashMB
	cfg.Analysis.Mistake = *mistake
	cfg.Analysis.Blunder = *blunder
	cfg.Output.Dir = *out
	if *enginePath != "" {
		cfg.Engine.Path = *enginePath
	}

	// The floor doubles as the inaccuracy threshold, like a single
	// knob. An explicit flag moves both; a config file may split them.
	if visited["min-cp"] {
		floor := *minCP
		if floor < 0 {
			floor = 0
		}
		cfg.Analysis.Inaccuracy = floor
		cfg.Analysis.MinCPShow = floor
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	sinceMillis, err := parseDateMillis(*since, false)
	if err != nil {
		log.Fatalf("Invalid -since: %v", err)
	}
	untilMillis, err := parseDateMillis(*until, true)
	if err != nil {
		log.Fatalf("Invalid -until: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var repo *storage.RunRepository
	if !*noStore {
		db := openDatabase(*dbPath)
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		}()
		repo = storage.NewRunRepository(db)
	}

	eng := engine.New(cfg.EnginePath(), engine.Options{
		Threads: cfg.Engine.Threads,
		HashMB:  cfg.Engine.HashMB,
		Depth:   cfg.Engine.Depth,
	})
	defer func() {
		if err := eng.Close(); err != nil {
			log.Printf("Error closing engine: %v", err)
		}
	}()

	client := lichess.NewClient(lichess.ClientOptions{Token: resolveToken(*token)})
	fetcher := retrieve.NewFetcher(client)
	runner := pipeline.NewRunner(fetcher, eng, repo)

	res, err := runner.Run(ctx, pipeline.Params{
		Username: *user,
		Filter: lichess.GameFilter{
			Max:         cfg.Lichess.MaxGames,
			SinceMillis: sinceMillis,
			UntilMillis: untilMillis,
			PerfTypes:   splitPerf(cfg.Lichess.Perf),
		},
		Analysis: analysis.Options{
			Thresholds: analysis.Thresholds{
				Inaccuracy: cfg.Analysis.Inaccuracy,
				Mistake:    cfg.Analysis.Mistake,
				Blunder:    cfg.Analysis.Blunder,
			},
			MinCPShow: cfg.Analysis.MinCPShow,
			Side:      cfg.Lichess.Side,
		},
		OutDir: cfg.Output.Dir,
		Perf:   cfg.Lichess.Perf,
		Depth:  cfg.Engine.Depth,
	})
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	fmt.Printf("Analyzed %d games (%d skipped), flagged %d moves\n",
		res.Run.GamesAnalyzed, res.Skipped, res.Run.ErrorCount)
	if res.Run.ID != "" {
		fmt.Printf("Saved run %s\n", res.Run.ID)
	}

	if *open {
		if err := gallery.OpenInBrowser(res.GalleryPath); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	}
}

// resolveToken picks the API token: explicit flag, then environment,
// then the sealed token file. A missing token is fine, exports are
// just limited to public games.
func resolveToken(flagToken string) string {
	if flagToken != "" {
		return flagToken
	}
	if env := os.Getenv("LICHESS_TOKEN"); env != "" {
		return env
	}

	dir, err := config.Dir()
	if err != nil {
		return ""
	}
	token, err := storage.LoadToken(dir, os.Getenv("BLUNDERLAB_PASSPHRASE"))
	if err != nil {
		if !errors.Is(err, storage.ErrNoToken) {
			log.Printf("Stored token unavailable: %v", err)
		}
		return ""
	}
	return token
}

// parseDateMillis converts a YYYY-MM-DD date to epoch milliseconds at
// UTC midnight. With endOfDay set the stamp lands on the last
// millisecond of that day, so -until is inclusive.
func parseDateMillis(value string, endOfDay bool) (int64, error) {
	if value == "" {
		return 0, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t.UnixMilli(), nil
}

// splitPerf turns "blitz, rapid" into {"blitz", "rapid"}.
func splitPerf(perf string) []string {
	var out []string
	for _, p := range strings.Split(perf, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
