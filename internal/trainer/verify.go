// Package trainer checks a student's move for a flagged position
// against the engine's choice. It mirrors the behavior of the board
// widgets embedded in the gallery, working from a single record with
// no access to the surrounding game.
package trainer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corentings/chess/v2"

	"github.com/mlowell/blunderlab/internal/analysis"
)

// Outcome is the result of proposing a move.
type Outcome int

const (
	// OutcomeIllegal rejects a move that is not legal in the
	// position. The position does not change.
	OutcomeIllegal Outcome = iota

	// OutcomeRetry rejects a legal move that is not the engine's
	// choice. The position is restored for another attempt.
	OutcomeRetry

	// OutcomeSolved accepts the engine's move and keeps it on the
	// board.
	OutcomeSolved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRetry:
		return "retry"
	case OutcomeSolved:
		return "solved"
	default:
		return "illegal"
	}
}

// Verifier replays one flagged position.
type Verifier struct {
	game   *chess.Game
	best   string
	solved bool
}

// NewVerifier builds a verifier from a position and the engine's move
// in coordinate form.
func NewVerifier(positionFEN, bestUCI string) (*Verifier, error) {
	opt, err := chess.FEN(positionFEN)
	if err != nil {
		return nil, fmt.Errorf("parse position %q: %w", positionFEN, err)
	}
	best := strings.ToLower(strings.TrimSpace(bestUCI))
	if best == "" {
		return nil, errors.New("no engine move to verify against")
	}
	return &Verifier{game: chess.NewGame(opt), best: best}, nil
}

// ForRecord builds a verifier for a graded move.
func ForRecord(rec analysis.MoveError) (*Verifier, error) {
	return NewVerifier(rec.PositionBefore, rec.BestUCI)
}

// Propose attempts the move from one square to another with an
// optional promotion piece. A promotion proposed without a piece
// promotes to a queen. The comparison against the engine move is
// case-insensitive. Once solved, further proposals change nothing.
func (v *Verifier) Propose(from, to, promo string) Outcome {
	if v.solved {
		return OutcomeSolved
	}

	proposal := strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to) + strings.TrimSpace(promo))

	valid := v.game.ValidMoves()
	if len(proposal) == 4 && promotionPending(valid, proposal) {
		proposal += "q"
	}

	match := -1
	for i := range valid {
		if strings.ToLower(valid[i].String()) == proposal {
			match = i
			break
		}
	}
	if match < 0 {
		return OutcomeIllegal
	}

	if proposal != v.best {
		return OutcomeRetry
	}

	if err := v.game.Move(&valid[match], nil); err != nil {
		return OutcomeIllegal
	}
	v.solved = true
	return OutcomeSolved
}

// promotionPending reports whether the bare from-to pair is a
// promotion, which carries a piece suffix in coordinate form.
func promotionPending(valid []chess.Move, fromTo string) bool {
	for i := range valid {
		s := strings.ToLower(valid[i].String())
		if len(s) == 5 && strings.HasPrefix(s, fromTo) {
			return true
		}
	}
	return false
}

// Solved reports whether the engine move has been played.
func (v *Verifier) Solved() bool {
	return v.solved
}

// FEN returns the current position. It changes only when the engine
// move has been accepted.
func (v *Verifier) FEN() string {
	return v.game.FEN()
}

// SideToMove names the color to move, the side that made the original
// error.
func (v *Verifier) SideToMove() string {
	if v.game.Position().Turn() == chess.White {
		return "white"
	}
	return "black"
}
