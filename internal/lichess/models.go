package lichess

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrUserNotFound reports that the target account is unknown, closed or
// private. Callers should treat it as fatal before spending any game
// retrieval attempts.
var ErrUserNotFound = errors.New("unknown or private user")

// APIError is a non-OK response from the Lichess API.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("lichess API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("lichess API error %d", e.StatusCode)
}

// NotFoundError is a 404 for a specific resource URL.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.URL)
}

// User is the public profile of a Lichess account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Disabled bool   `json:"disabled"`
	Title    string `json:"title,omitempty"`
}

// ExportedGame is one game from the structured export API.
type ExportedGame struct {
	ID        string   `json:"id"`
	Rated     bool     `json:"rated"`
	Variant   string   `json:"variant"`
	Speed     string   `json:"speed"`
	Perf      string   `json:"perf"`
	CreatedAt int64    `json:"createdAt"`
	Status    string   `json:"status"`
	Players   Players  `json:"players"`
	Opening   *Opening `json:"opening,omitempty"`
	Moves     string   `json:"moves"`
	PGN       string   `json:"pgn"`
}

// Players holds both sides of a game.
type Players struct {
	White Player `json:"white"`
	Black Player `json:"black"`
}

// Player is one side of a game.
type Player struct {
	User   *AccountRef `json:"user"`
	Rating int         `json:"rating"`
}

// AccountRef identifies an account inside a game record.
type AccountRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Opening is the detected opening of a game.
type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
	Ply  int    `json:"ply"`
}

// GameFilter restricts a game export. Zero values mean "no restriction"
// except Max, which callers should always set.
type GameFilter struct {
	// Max limits the number of games returned.
	Max int

	// SinceMillis and UntilMillis bound the game start time in epoch
	// milliseconds. Zero disables the bound.
	SinceMillis int64
	UntilMillis int64

	// PerfTypes restricts by speed category (bullet, blitz, rapid,
	// classical, correspondence).
	PerfTypes []string
}

// WithoutPerfTypes returns a copy of the filter with the speed
// restriction dropped.
func (f GameFilter) WithoutPerfTypes() GameFilter {
	f.PerfTypes = nil
	return f
}

// query translates the filter into export API parameters. The fixed
// parameters match what the analysis needs: move lists and opening
// names included, clock and eval annotations excluded.
func (f GameFilter) query(pgnInJSON bool) url.Values {
	params := url.Values{}
	if f.Max > 0 {
		params.Set("max", strconv.Itoa(f.Max))
	}
	params.Set("moves", "true")
	params.Set("opening", "true")
	params.Set("clocks", "false")
	params.Set("evals", "false")
	if pgnInJSON {
		params.Set("pgnInJson", "true")
	}
	if f.SinceMillis > 0 {
		params.Set("since", strconv.FormatInt(f.SinceMillis, 10))
	}
	if f.UntilMillis > 0 {
		params.Set("until", strconv.FormatInt(f.UntilMillis, 10))
	}
	if len(f.PerfTypes) > 0 {
		params.Set("perfType", strings.Join(f.PerfTypes, ","))
	}
	return params
}
