package retrieve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mlowell/blunderlab/internal/lichess"
)

const (
	pgnOne = "[Event \"Rated blitz game\"]\n[Site \"https://lichess.org/abcd1234\"]\n[White \"alice\"]\n[Black \"bob\"]\n\n1. e4 e5 2. Nf3 Nc6 1-0"
	pgnTwo = "[Event \"Rated rapid game\"]\n[Site \"https://lichess.org/wxyz9876\"]\n[White \"bob\"]\n[Black \"alice\"]\n\n1. d4 d5 2. c4 e6 0-1"
)

type stubSource struct {
	userErr    error
	structured func(filter lichess.GameFilter) ([]lichess.ExportedGame, error)
	raw        func(filter lichess.GameFilter) (string, error)

	structuredCalls []lichess.GameFilter
	rawCalls        []lichess.GameFilter
}

func (s *stubSource) GetUser(ctx context.Context, username string) (*lichess.User, error) {
	if s.userErr != nil {
		return nil, s.userErr
	}
	return &lichess.User{ID: username, Username: username}, nil
}

func (s *stubSource) ExportGames(ctx context.Context, username string, filter lichess.GameFilter) ([]lichess.ExportedGame, error) {
	s.structuredCalls = append(s.structuredCalls, filter)
	if s.structured == nil {
		return nil, nil
	}
	return s.structured(filter)
}

func (s *stubSource) ExportGamesPGN(ctx context.Context, username string, filter lichess.GameFilter) (string, error) {
	s.rawCalls = append(s.rawCalls, filter)
	if s.raw == nil {
		return "", nil
	}
	return s.raw(filter)
}

func TestFetchUnknownUser(t *testing.T) {
	source := &stubSource{
		userErr: fmt.Errorf("%q: %w", "ghost", lichess.ErrUserNotFound),
	}
	fetcher := NewFetcher(source)

	_, err := fetcher.Fetch(context.Background(), "ghost", lichess.GameFilter{Max: 10})
	if !errors.Is(err, lichess.ErrUserNotFound) {
		t.Fatalf("Fetch() error = %v, want ErrUserNotFound", err)
	}
	if len(source.structuredCalls) != 0 || len(source.rawCalls) != 0 {
		t.Errorf("Fetch() attempted export for unknown user")
	}
}

func TestFetchStructuredSuccess(t *testing.T) {
	source := &stubSource{
		structured: func(lichess.GameFilter) ([]lichess.ExportedGame, error) {
			return []lichess.ExportedGame{
				{ID: "abcd1234", PGN: pgnOne},
				{ID: "wxyz9876", PGN: pgnTwo},
			}, nil
		},
	}
	fetcher := NewFetcher(source)

	games, err := fetcher.Fetch(context.Background(), "alice", lichess.GameFilter{Max: 10})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("Fetch() returned %d games, want 2", len(games))
	}
	if !strings.Contains(games[0], "abcd1234") || !strings.Contains(games[1], "wxyz9876") {
		t.Errorf("Fetch() games out of order: %q, %q", games[0], games[1])
	}
	if len(source.rawCalls) != 0 {
		t.Errorf("Fetch() fell through to raw export after structured success")
	}
}

func TestFetchDropsSpeedFilterWhenEmpty(t *testing.T) {
	source := &stubSource{
		structured: func(filter lichess.GameFilter) ([]lichess.ExportedGame, error) {
			if len(filter.PerfTypes) > 0 {
				return nil, nil
			}
			return []lichess.ExportedGame{{ID: "abcd1234", PGN: pgnOne}}, nil
		},
	}
	fetcher := NewFetcher(source)

	filter := lichess.GameFilter{Max: 10, PerfTypes: []string{"bullet"}}
	games, err := fetcher.Fetch(context.Background(), "alice", filter)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("Fetch() returned %d games, want 1", len(games))
	}
	if len(source.structuredCalls) != 2 {
		t.Fatalf("structured export called %d times, want 2", len(source.structuredCalls))
	}
	if len(source.structuredCalls[1].PerfTypes) != 0 {
		t.Errorf("second structured attempt kept speed filter %v", source.structuredCalls[1].PerfTypes)
	}
	if len(source.rawCalls) != 0 {
		t.Errorf("Fetch() tried raw export before exhausting structured variants")
	}
}

func TestFetchFallsBackToRaw(t *testing.T) {
	source := &stubSource{
		raw: func(lichess.GameFilter) (string, error) {
			return pgnOne + "\n\n" + pgnTwo + "\n", nil
		},
	}
	fetcher := NewFetcher(source)

	games, err := fetcher.Fetch(context.Background(), "alice", lichess.GameFilter{Max: 10})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("Fetch() returned %d games, want 2", len(games))
	}
	for i, game := range games {
		if !strings.HasPrefix(game, "[Event ") {
			t.Errorf("game %d does not start at the event boundary: %q", i, game)
		}
	}
}

func TestFetchNoGames(t *testing.T) {
	fetcher := NewFetcher(&stubSource{})

	_, err := fetcher.Fetch(context.Background(), "alice", lichess.GameFilter{Max: 10, PerfTypes: []string{"blitz"}})
	if !errors.Is(err, ErrNoGames) {
		t.Fatalf("Fetch() error = %v, want ErrNoGames", err)
	}
}

func TestFetchTransportFailure(t *testing.T) {
	apiErr := &lichess.APIError{StatusCode: 503, Message: "service unavailable"}
	source := &stubSource{
		structured: func(lichess.GameFilter) ([]lichess.ExportedGame, error) {
			return nil, apiErr
		},
		raw: func(lichess.GameFilter) (string, error) {
			return "", apiErr
		},
	}
	fetcher := NewFetcher(source)

	_, err := fetcher.Fetch(context.Background(), "alice", lichess.GameFilter{Max: 10})
	if err == nil {
		t.Fatal("Fetch() error = nil, want transport failure")
	}
	if errors.Is(err, ErrNoGames) {
		t.Errorf("Fetch() reported ErrNoGames for a transport failure: %v", err)
	}
	var target *lichess.APIError
	if !errors.As(err, &target) {
		t.Errorf("Fetch() error = %v, want wrapped APIError", err)
	}
}

func TestFetchDeduplicates(t *testing.T) {
	source := &stubSource{
		structured: func(lichess.GameFilter) ([]lichess.ExportedGame, error) {
			return []lichess.ExportedGame{
				{ID: "abcd1234", PGN: pgnOne},
				{ID: "abcd1234", PGN: pgnOne},
				{ID: "wxyz9876", PGN: pgnTwo},
			}, nil
		},
	}
	fetcher := NewFetcher(source)

	games, err := fetcher.Fetch(context.Background(), "alice", lichess.GameFilter{Max: 10})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("Fetch() returned %d games, want 2 after de-duplication", len(games))
	}
}

func TestFetchCapsAtMax(t *testing.T) {
	source := &stubSource{
		raw: func(lichess.GameFilter) (string, error) {
			third := strings.Replace(pgnOne, "abcd1234", "qrst5555", 1)
			return pgnOne + "\n\n" + pgnTwo + "\n\n" + third, nil
		},
	}
	fetcher := NewFetcher(source)

	games, err := fetcher.Fetch(context.Background(), "alice", lichess.GameFilter{Max: 2})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("Fetch() returned %d games, want cap of 2", len(games))
	}
}

func TestFetchSplitsStructuredTexts(t *testing.T) {
	source := &stubSource{
		structured: func(lichess.GameFilter) ([]lichess.ExportedGame, error) {
			return []lichess.ExportedGame{{ID: "abcd1234", PGN: pgnOne + "\n\n" + pgnTwo}}, nil
		},
	}
	fetcher := NewFetcher(source)

	games, err := fetcher.Fetch(context.Background(), "alice", lichess.GameFilter{Max: 10})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("Fetch() returned %d games, want 2 after splitting", len(games))
	}
}

func TestSplitGames(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "\n\n  \n", 0},
		{"single game", pgnOne, 1},
		{"two games", pgnOne + "\n\n" + pgnTwo + "\n", 2},
		{"leading blank lines", "\n\n" + pgnOne, 1},
		{"bare movetext", "1. e4 e5 2. Nf3 Nc6", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitGames(tt.text)
			if len(got) != tt.want {
				t.Errorf("SplitGames() returned %d chunks, want %d", len(got), tt.want)
			}
			for i, chunk := range got {
				if strings.TrimSpace(chunk) == "" {
					t.Errorf("chunk %d is blank", i)
				}
			}
		})
	}
}

func TestSplitGamesKeepsContent(t *testing.T) {
	got := SplitGames(pgnOne + "\n\n" + pgnTwo)
	if len(got) != 2 {
		t.Fatalf("SplitGames() returned %d chunks, want 2", len(got))
	}
	if !strings.Contains(got[0], "1. e4 e5") {
		t.Errorf("first chunk lost its movetext: %q", got[0])
	}
	if !strings.Contains(got[1], "1. d4 d5") {
		t.Errorf("second chunk lost its movetext: %q", got[1])
	}
}
