package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/corentings/chess/v2"

	"github.com/mlowell/blunderlab/internal/engine"
)

// Oracle answers engine queries about a position. Both queries for a
// ply run against the same pre-move position, so their scores share a
// perspective and subtract cleanly.
type Oracle interface {
	BestMove(fen string) (engine.Evaluation, error)
	EvalMove(fen string, moveUCI string) (engine.Evaluation, error)
}

// Options control which moves the walker grades and reports.
type Options struct {
	Thresholds Thresholds

	// MinCPShow suppresses graded moves whose loss falls below it.
	MinCPShow int

	// Side restricts grading to "white" or "black" moves. "both" or
	// empty grades every move. Skipped plies still advance the game.
	Side string
}

// Walker replays games move by move and grades each considered move
// against the engine's preferred continuation.
type Walker struct {
	oracle Oracle
	opts   Options
}

// NewWalker creates a walker that consults the given oracle.
func NewWalker(oracle Oracle, opts Options) *Walker {
	return &Walker{oracle: oracle, opts: opts}
}

// AnalyzeGame replays one game text. The side to move is read from
// each position rather than from ply parity, so games that start from
// a setup position grade correctly. Engine failures abort the game and
// are returned with the partial report.
func (w *Walker) AnalyzeGame(pgnText string) (*GameReport, error) {
	opt, err := chess.PGN(strings.NewReader(pgnText))
	if err != nil {
		return placeholderReport(pgnText), nil
	}
	game := chess.NewGame(opt)

	report := &GameReport{
		GameID: gameIDFromTags(game.GetTagPair),
		Meta:   metaFromTags(game.GetTagPair),
	}

	moves := game.Moves()
	positions := game.Positions()

	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		pos := positions[i]
		ply := i + 1

		side := "black"
		if pos.Turn() == chess.White {
			side = "white"
		}
		if !w.wantSide(side) {
			continue
		}

		fen := pos.String()
		best, err := w.oracle.BestMove(fen)
		if err != nil {
			return report, fmt.Errorf("best move at ply %d: %w", ply, err)
		}
		playedUCI := mv.String()
		played, err := w.oracle.EvalMove(fen, playedUCI)
		if err != nil {
			return report, fmt.Errorf("evaluate %s at ply %d: %w", playedUCI, ply, err)
		}

		cpLoss := best.Score.Centipawns() - played.Score.Centipawns()
		if cpLoss < 0 {
			cpLoss = 0
		}

		severity := w.opts.Thresholds.Classify(cpLoss)
		if severity == SeverityNone || cpLoss < w.opts.MinCPShow {
			continue
		}

		report.Errors = append(report.Errors, MoveError{
			Ply:            ply,
			MoveNo:         (ply + 1) / 2,
			Side:           side,
			PlayedSAN:      chess.AlgebraicNotation{}.Encode(pos, mv),
			PlayedUCI:      playedUCI,
			BestSAN:        bestSAN(pos, best.BestMove),
			BestUCI:        best.BestMove,
			CPLoss:         cpLoss,
			Severity:       severity,
			PositionBefore: fen,
			GameLink:       gameLink(report.GameID, ply),
		})
	}

	return report, nil
}

func (w *Walker) wantSide(side string) bool {
	want := strings.ToLower(w.opts.Side)
	if want == "" || want == "both" {
		return true
	}
	return want == side
}

// bestSAN renders the engine move in algebraic form, falling back to
// the raw coordinate string when it cannot be decoded.
func bestSAN(pos *chess.Position, uci string) string {
	mv, err := chess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return uci
	}
	return chess.AlgebraicNotation{}.Encode(pos, mv)
}

func gameLink(gameID string, ply int) string {
	if gameID == "" {
		return ""
	}
	return fmt.Sprintf("https://lichess.org/%s#%d", gameID, ply)
}

func metaFromTags(tag func(string) string) GameMeta {
	return GameMeta{
		White:       orUnknown(tag("White")),
		Black:       orUnknown(tag("Black")),
		WhiteElo:    tag("WhiteElo"),
		BlackElo:    tag("BlackElo"),
		Date:        firstTag(tag, "UTCDate", "Date"),
		TimeControl: tag("TimeControl"),
		Opening:     tag("Opening"),
		Result:      tag("Result"),
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "?"
	}
	return v
}

func firstTag(tag func(string) string, keys ...string) string {
	for _, key := range keys {
		if v := tag(key); v != "" {
			return v
		}
	}
	return ""
}

// gameIDFromTags extracts the game identifier from the game URL tags.
func gameIDFromTags(tag func(string) string) string {
	for _, key := range []string{"LichessURL", "Site"} {
		if u := tag(key); u != "" {
			if id := lastPathSegment(u); id != "" {
				return id
			}
		}
	}
	return ""
}

func lastPathSegment(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	if i := strings.LastIndexByte(u, '/'); i >= 0 {
		u = u[i+1:]
	}
	if u == "" || strings.Contains(u, ".") {
		return ""
	}
	return u
}

var tagLineRE = regexp.MustCompile(`\[(\w+)\s+"([^"]*)"\]`)

// placeholderReport salvages header tags from a game whose movetext
// could not be parsed.
func placeholderReport(pgnText string) *GameReport {
	tags := make(map[string]string)
	for _, m := range tagLineRE.FindAllStringSubmatch(pgnText, -1) {
		if _, ok := tags[m[1]]; !ok {
			tags[m[1]] = m[2]
		}
	}
	get := func(k string) string { return tags[k] }
	return &GameReport{
		GameID:      gameIDFromTags(get),
		Meta:        metaFromTags(get),
		ParseFailed: true,
	}
}
