// Package retrieve obtains raw game texts for a user, trying ordered
// source strategies and filter variants until one yields data.
package retrieve

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mlowell/blunderlab/internal/lichess"
)

// ErrNoGames reports that every strategy and filter variant completed
// without error but returned nothing. It is distinct from a transport
// failure, which is surfaced as a wrapped attempt error instead.
var ErrNoGames = errors.New("no games retrievable")

// GameSource is the slice of the Lichess client the fetcher needs.
type GameSource interface {
	GetUser(ctx context.Context, username string) (*lichess.User, error)
	ExportGames(ctx context.Context, username string, filter lichess.GameFilter) ([]lichess.ExportedGame, error)
	ExportGamesPGN(ctx context.Context, username string, filter lichess.GameFilter) (string, error)
}

// Fetcher retrieves per-game PGN texts for a user.
type Fetcher struct {
	source GameSource
}

// NewFetcher creates a fetcher backed by the given source.
func NewFetcher(source GameSource) *Fetcher {
	return &Fetcher{source: source}
}

// attempt is one (strategy, filter variant) pair of the retry chain.
type attempt struct {
	name string
	run  func() ([]string, error)
}

// Fetch verifies the user exists and then walks the attempt chain:
// structured export with the full filter, structured export with the
// speed filter dropped, then the raw PGN transport with the same two
// variants. The first attempt that yields at least one game wins. The
// result is an ordered, de-duplicated list of single-game texts, capped
// at filter.Max.
func (f *Fetcher) Fetch(ctx context.Context, username string, filter lichess.GameFilter) ([]string, error) {
	if _, err := f.source.GetUser(ctx, username); err != nil {
		return nil, err
	}

	attempts := []attempt{
		{
			name: "structured export",
			run:  func() ([]string, error) { return f.structured(ctx, username, filter) },
		},
	}
	if len(filter.PerfTypes) > 0 {
		attempts = append(attempts, attempt{
			name: "structured export without speed filter",
			run:  func() ([]string, error) { return f.structured(ctx, username, filter.WithoutPerfTypes()) },
		})
	}
	attempts = append(attempts, attempt{
		name: "raw PGN export",
		run:  func() ([]string, error) { return f.raw(ctx, username, filter) },
	})
	if len(filter.PerfTypes) > 0 {
		attempts = append(attempts, attempt{
			name: "raw PGN export without speed filter",
			run:  func() ([]string, error) { return f.raw(ctx, username, filter.WithoutPerfTypes()) },
		})
	}

	var lastErr error
	for _, a := range attempts {
		texts, err := a.run()
		if err != nil {
			log.Printf("retrieval attempt %q failed: %v", a.name, err)
			lastErr = err
			continue
		}

		games := collect(texts, filter.Max)
		if len(games) > 0 {
			return games, nil
		}
		log.Printf("retrieval attempt %q returned no games", a.name)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all retrieval attempts failed: %w", lastErr)
	}
	return nil, fmt.Errorf("%w for %q", ErrNoGames, username)
}

func (f *Fetcher) structured(ctx context.Context, username string, filter lichess.GameFilter) ([]string, error) {
	games, err := f.source.ExportGames(ctx, username, filter)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(games))
	for _, game := range games {
		if game.PGN != "" {
			texts = append(texts, game.PGN)
		}
	}
	return texts, nil
}

func (f *Fetcher) raw(ctx context.Context, username string, filter lichess.GameFilter) ([]string, error) {
	blob, err := f.source.ExportGamesPGN(ctx, username, filter)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(blob) == "" {
		return nil, nil
	}
	return []string{blob}, nil
}

// collect splits every text into single games, de-duplicates them in
// order and caps the result.
func collect(texts []string, maxGames int) []string {
	var games []string
	seen := make(map[string]bool)

	for _, text := range texts {
		for _, game := range SplitGames(text) {
			key := gameKey(game)
			if seen[key] {
				continue
			}
			seen[key] = true
			games = append(games, game)
			if maxGames > 0 && len(games) == maxGames {
				return games
			}
		}
	}
	return games
}

// SplitGames splits a possibly multi-game text on the event boundary
// marker. Every consumer of retrieval output sees single-game texts
// only.
func SplitGames(text string) []string {
	var games []string
	var current strings.Builder

	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			games = append(games, chunk)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	// Lichess emits each game's movetext as one long line.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "[Event ") {
			flush()
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	flush()

	return games
}

// gameKey extracts a stable identity for de-duplication: the game URL
// tag when present, the whole text otherwise.
func gameKey(game string) string {
	for _, tag := range []string{"[LichessURL ", "[Site "} {
		if i := strings.Index(game, tag); i >= 0 {
			rest := game[i+len(tag):]
			if j := strings.IndexByte(rest, ']'); j >= 0 {
				value := strings.Trim(rest[:j], "\" ")
				if value != "" {
					return value
				}
			}
		}
	}
	return game
}
