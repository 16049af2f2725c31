// Package pipeline runs a full analysis batch: fetch a player's games,
// grade every move against the engine, persist the run and render the
// gallery. It owns the order of those stages and the decision of which
// failures end a run versus cost a single game.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mlowell/blunderlab/internal/analysis"
	"github.com/mlowell/blunderlab/internal/engine"
	"github.com/mlowell/blunderlab/internal/gallery"
	"github.com/mlowell/blunderlab/internal/lichess"
	"github.com/mlowell/blunderlab/internal/retrieve"
	"github.com/mlowell/blunderlab/internal/storage"
)

// Params carries the inputs of one run.
type Params struct {
	Username string
	Filter   lichess.GameFilter
	Analysis analysis.Options

	// OutDir is where the gallery and chart pages are written.
	OutDir string

	// Perf and Depth are recorded with the run for later listing.
	Perf  string
	Depth int
}

// Result summarizes a finished run.
type Result struct {
	Run         *storage.Run
	Reports     []analysis.GameReport
	GalleryPath string

	// Skipped counts games dropped by per-game analysis failures.
	Skipped int
}

// Runner executes analysis runs. The oracle is used strictly
// sequentially; its lifetime belongs to the caller.
type Runner struct {
	fetcher *retrieve.Fetcher
	oracle  analysis.Oracle
	repo    *storage.RunRepository
}

// NewRunner creates a runner. A nil repository disables persistence;
// the run is still analyzed and rendered.
func NewRunner(fetcher *retrieve.Fetcher, oracle analysis.Oracle, repo *storage.RunRepository) *Runner {
	return &Runner{fetcher: fetcher, oracle: oracle, repo: repo}
}

// Run fetches, analyzes, persists and renders one batch.
//
// A game that fails to analyze is logged and skipped; the run carries
// on. An engine failure is different: once the process is gone every
// later game would fail the same way, so the run aborts.
func (r *Runner) Run(ctx context.Context, params Params) (*Result, error) {
	games, err := r.fetcher.Fetch(ctx, params.Username, params.Filter)
	if err != nil {
		return nil, err
	}

	walker := analysis.NewWalker(r.oracle, params.Analysis)
	res := &Result{}

	for i, text := range games {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Printf("[%d/%d] Analyzing...", i+1, len(games))
		report, err := walker.AnalyzeGame(text)
		if err != nil {
			if errors.Is(err, engine.ErrEngineClosed) {
				return nil, fmt.Errorf("analysis aborted at game %d of %d: %w", i+1, len(games), err)
			}
			log.Printf("Skipped game due to error: %v", err)
			res.Skipped++
			continue
		}
		res.Reports = append(res.Reports, *report)
	}

	run := &storage.Run{
		Username:    params.Username,
		Perf:        params.Perf,
		Side:        sideOrBoth(params.Analysis.Side),
		Depth:       params.Depth,
		MaxGames:    params.Filter.Max,
		GamesFailed: res.Skipped,
	}

	if r.repo != nil {
		if err := r.repo.SaveRun(ctx, run, res.Reports); err != nil {
			return nil, fmt.Errorf("persist run: %w", err)
		}
	} else {
		run.GamesAnalyzed = len(res.Reports)
		for i := range res.Reports {
			run.ErrorCount += len(res.Reports[i].Errors)
		}
	}
	res.Run = run

	indexPath, err := gallery.New(params.OutDir).RenderAll(res.Reports)
	if err != nil {
		return nil, err
	}
	res.GalleryPath = indexPath

	log.Printf("Wrote gallery: %s (%d games, %d flagged moves)",
		indexPath, run.GamesAnalyzed, run.ErrorCount)

	return res, nil
}

func sideOrBoth(side string) string {
	if side == "" {
		return "both"
	}
	return side
}
